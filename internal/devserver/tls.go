package devserver

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"time"
)

// certificateLifetime is how long a generated certificate stays valid.
// A dev server rarely runs for more than a day; a year keeps long-lived
// sessions from tripping over expiry.
const certificateLifetime = 365 * 24 * time.Hour

// selfSignedCertificate creates an in-memory certificate valid for host and
// the loopback names.
//
// The certificate is never written to disk and a new one is generated on
// every start, so there is nothing to clean up or rotate. Browsers will show
// a warning for it; --https only exists for code that needs a secure
// context (service workers, some media APIs), not for real transport
// security.
func selfSignedCertificate(host string) (tls.Certificate, error) {
	// P-256 keys are fast to generate and accepted by every current browser.
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate TLS key: %w", err)
	}
	// Serial numbers must be unique per issuer; 128 random bits make
	// collisions between restarts practically impossible.
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate certificate serial: %w", err)
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"Catalog development server"}},
		// Backdated by an hour to tolerate small clock skew between the
		// server and a browser on another machine.
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(certificateLifetime),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	// Cover the host the user asked for as well, so https://<host>:<port>/
	// matches the certificate. IP literals go into IPAddresses, names into
	// DNSNames; "localhost" is already present.
	if ip := net.ParseIP(host); ip != nil {
		template.IPAddresses = append(template.IPAddresses, ip)
	} else if host != "" && host != "localhost" {
		template.DNSNames = append(template.DNSNames, host)
	}

	// Self-signed: the template is both subject and issuer.
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create TLS certificate: %w", err)
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}
