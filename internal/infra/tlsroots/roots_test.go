package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAddCertPEM(t *testing.T) {
	pool := NewEmptyPool()

	if err := pool.AddCertPEM(generateTestCertPEM(t)); err != nil {
		t.Fatalf("AddCertPEM() error = %v", err)
	}
}

func TestAddCertPEM_NoCerts(t *testing.T) {
	pool := NewEmptyPool()

	for _, data := range [][]byte{nil, []byte("not a certificate")} {
		if err := pool.AddCertPEM(data); !errors.Is(err, ErrNoCertsFound) {
			t.Errorf("AddCertPEM(%q) error = %v, want ErrNoCertsFound", data, err)
		}
	}

	key := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("x")})
	if err := pool.AddCertPEM(key); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("key-only PEM error = %v, want ErrNoCertsFound", err)
	}
}

func TestAddCertPEM_InvalidCert(t *testing.T) {
	pool := NewEmptyPool()

	invalid := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})
	if err := pool.AddCertPEM(invalid); err == nil {
		t.Error("AddCertPEM() expected error for invalid certificate")
	}
}

func TestAddPath_FileAndDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "ca.pem")
	writeFile(t, file, generateTestCertPEM(t))
	writeFile(t, filepath.Join(dir, "README.txt"), []byte("ignored"))

	if err := NewEmptyPool().AddPath(file); err != nil {
		t.Errorf("AddPath(file) error = %v", err)
	}
	if err := NewEmptyPool().AddPath(dir); err != nil {
		t.Errorf("AddPath(dir) error = %v", err)
	}
}

func TestAddPath_Errors(t *testing.T) {
	dir := t.TempDir()

	if err := NewEmptyPool().AddPath(filepath.Join(dir, "missing.pem")); err == nil {
		t.Error("missing file: expected error")
	}
	if err := NewEmptyPool().AddPath(dir); !errors.Is(err, ErrNoCertsFound) {
		t.Errorf("empty dir error = %v, want ErrNoCertsFound", err)
	}

	writeFile(t, filepath.Join(dir, "bad.crt"), []byte("not pem"))
	if err := NewEmptyPool().AddPath(dir); err == nil {
		t.Error("dir without valid certs: expected error")
	}
}

func TestClientConfig_Empty(t *testing.T) {
	cfg, err := ClientConfig("")
	if err != nil || cfg != nil {
		t.Errorf("ClientConfig(\"\") = %v, %v; want nil, nil", cfg, err)
	}
}

func TestClientConfig_TrustsPrivateCA(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	writeFile(t, caFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}))

	cfg, err := ClientConfig(caFile)
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if cfg.MinVersion == 0 || cfg.RootCAs == nil {
		t.Fatalf("ClientConfig() = %+v", cfg)
	}

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: cfg}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET with private CA: %v", err)
	}
	resp.Body.Close()

	plain := &http.Client{Transport: &http.Transport{}}
	if _, err := plain.Get(srv.URL); err == nil {
		t.Error("GET without private CA succeeded")
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}

func generateTestCertPEM(t *testing.T) []byte {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{Organization: []string{"Kasb Test CA"}},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
