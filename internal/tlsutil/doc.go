// Package tlsutil 提供访问摄像机推理服务的 TLS 客户端配置，
// 安全加固（TLS 1.2+，仅 AEAD 密码套件），并支持设备自签名证书场景。
package tlsutil
