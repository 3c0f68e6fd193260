// Optional TLS for the monitor listener, via the hot-reloading loader the
// teacher declares but never wires (it rolls its own equivalent in
// rtmp_ssl.go); this module uses the library directly instead.

package bridge

import (
	"crypto/tls"
	"net"
	"time"

	certloader "github.com/AgustinSRG/go-tls-certificate-loader"
)

func newCertLoader(certPath, keyPath string, reload time.Duration) (*certloader.CertificateLoader, error) {
	loader, err := certloader.NewCertificateLoader(certPath, keyPath, int(reload/time.Second))
	if err != nil {
		return nil, err
	}
	go loader.RunReloadThread()
	return loader, nil
}

func tlsListen(addr string, loader *certloader.CertificateLoader) (net.Listener, error) {
	cfg := &tls.Config{
		GetCertificate: loader.GetCertificateFunc(),
	}
	return tls.Listen("tcp", addr, cfg)
}
