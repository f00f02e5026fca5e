package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// DefaultTLSConfig returns a hardened TLS configuration.
// MinVersion TLS 1.2, AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// ClientTLS 构造访问摄像机服务的客户端 TLS 配置。
// 摄像机出厂通常只带自签名证书，skipVerify 跳过证书链校验；
// 生产环境应改用 ClientTLSWithCA 固定设备 CA。
func ClientTLS(skipVerify bool) *tls.Config {
	cfg := DefaultTLSConfig()
	cfg.InsecureSkipVerify = skipVerify
	return cfg
}

// ClientTLSWithCA 在加固配置上追加自定义根证书，用于校验
// 设备证书链而不必跳过验证。caFile 为 PEM 编码的证书文件。
func ClientTLSWithCA(caFile string) (*tls.Config, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read ca cert %s: %w", caFile, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("ca cert %s contains no valid PEM certificates", caFile)
	}

	cfg := DefaultTLSConfig()
	cfg.RootCAs = pool
	return cfg, nil
}
