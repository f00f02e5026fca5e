package tlsutil

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTLSConfig(t *testing.T) {
	cfg := DefaultTLSConfig()
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %d, want %d", cfg.MinVersion, tls.VersionTLS12)
	}
	if len(cfg.CipherSuites) == 0 {
		t.Error("CipherSuites should not be empty")
	}
	// Verify all cipher suites are AEAD
	for _, cs := range cfg.CipherSuites {
		switch cs {
		case tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305:
			// OK — AEAD cipher suite
		default:
			t.Errorf("unexpected non-AEAD cipher suite: %d", cs)
		}
	}
	if cfg.InsecureSkipVerify {
		t.Error("default config must verify certificates")
	}
}

func TestClientTLS(t *testing.T) {
	cfg := ClientTLS(false)
	if cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should be false")
	}

	cfg = ClientTLS(true)
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify should be true")
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Error("skip-verify config must keep the hardened MinVersion")
	}
}

func TestClientTLSWithCA(t *testing.T) {
	// 自签名测试证书（仅结构有效性，不做链校验）
	const selfSigned = `-----BEGIN CERTIFICATE-----
MIIBhTCCASugAwIBAgIQIRi6zePL6mKjOipn+dNuaTAKBggqhkjOPQQDAjASMRAw
DgYDVQQKEwdBY21lIENvMB4XDTE3MTAyMDE5NDMwNloXDTE4MTAyMDE5NDMwNlow
EjEQMA4GA1UEChMHQWNtZSBDbzBZMBMGByqGSM49AgEGCCqGSM49AwEHA0IABD0d
7VNhbWvZLWPuj/RtHFjvtJBEwOkhbN/BnnE8rnZR8+sbwnc/KhCk3FhnpHZnQz7B
5aETbbIgmuvewdjvSBSjYzBhMA4GA1UdDwEB/wQEAwICpDATBgNVHSUEDDAKBggr
BgEFBQcDATAPBgNVHRMBAf8EBTADAQH/MCkGA1UdEQQiMCCCDmxvY2FsaG9zdDo1
NDUzgg4xMjcuMC4wLjE6NTQ1MzAKBggqhkjOPQQDAgNIADBFAiEA2zpJEPQyz6/l
Wf86aX6PepsntZv2GYlA5UpabfT2EZICICpJ5h/iI+i341gBmLiAFQOyTDT+/wQc
6MF9+Yw1Yy0t
-----END CERTIFICATE-----`

	dir := t.TempDir()
	caPath := filepath.Join(dir, "camera-ca.pem")
	if err := os.WriteFile(caPath, []byte(selfSigned), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := ClientTLSWithCA(caPath)
	if err != nil {
		t.Fatalf("ClientTLSWithCA failed: %v", err)
	}
	if cfg.RootCAs == nil {
		t.Error("RootCAs should be populated")
	}
	if cfg.InsecureSkipVerify {
		t.Error("CA-pinned config must verify certificates")
	}
}

func TestClientTLSWithCA_MissingFile(t *testing.T) {
	if _, err := ClientTLSWithCA("/nonexistent/ca.pem"); err == nil {
		t.Error("expected error for missing CA file")
	}
}

func TestClientTLSWithCA_InvalidPEM(t *testing.T) {
	dir := t.TempDir()
	caPath := filepath.Join(dir, "bad.pem")
	if err := os.WriteFile(caPath, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := ClientTLSWithCA(caPath); err == nil {
		t.Error("expected error for invalid PEM content")
	}
}
