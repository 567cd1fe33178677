package cert

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPaths(t *testing.T) Paths {
	dir := t.TempDir()
	return Paths{
		CACert:     filepath.Join(dir, "ca", "ca.crt"),
		ServerCert: filepath.Join(dir, "server.crt"),
		ServerKey:  filepath.Join(dir, "server.key"),
	}
}

func readCert(t *testing.T, path string) *x509.Certificate {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	block, _ := pem.Decode(data)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	return cert
}

func TestEnsureServerCert_Generates(t *testing.T) {
	paths := testPaths(t)

	created, err := EnsureServerCert(paths, []string{"print.example.com", "10.0.0.5"})
	require.NoError(t, err)
	assert.True(t, created)

	ca := readCert(t, paths.CACert)
	server := readCert(t, paths.ServerCert)
	assert.True(t, ca.IsCA)
	assert.Equal(t, []string{"print.example.com"}, server.DNSNames)
	require.Len(t, server.IPAddresses, 1)
	assert.Equal(t, "10.0.0.5", server.IPAddresses[0].String())

	pool := x509.NewCertPool()
	pool.AddCert(ca)
	_, err = server.Verify(x509.VerifyOptions{Roots: pool, DNSName: "print.example.com"})
	assert.NoError(t, err)

	info, err := os.Stat(paths.ServerKey)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestEnsureServerCert_KeepsExisting(t *testing.T) {
	paths := testPaths(t)

	_, err := EnsureServerCert(paths, nil)
	require.NoError(t, err)
	before, err := os.ReadFile(paths.ServerCert)
	require.NoError(t, err)

	created, err := EnsureServerCert(paths, nil)
	require.NoError(t, err)
	assert.False(t, created)

	after, err := os.ReadFile(paths.ServerCert)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
