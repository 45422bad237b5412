package xproto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"
)

// fakeServer speaks the server side of the handshake by hand, reading and
// writing raw frames over one end of a net.Pipe — there is no real X
// Plugin server available to dial in these tests, so the wire contract
// itself is the fixture (mirrors the teacher's integration_test.go fake
// backend, minus the MySQL/Postgres packet shapes).
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	dec  *Decoder
}

func newFakeServer(t *testing.T, conn net.Conn) *fakeServer {
	return &fakeServer{t: t, conn: conn, dec: NewDecoder(0)}
}

func (f *fakeServer) recv() (byte, []byte) {
	f.t.Helper()
	readBuf := make([]byte, 4096)
	for {
		typeID, payload, ok, err := f.dec.Next()
		if err != nil {
			f.t.Fatalf("fakeServer decode error: %v", err)
		}
		if ok {
			return typeID, payload
		}
		n, err := f.conn.Read(readBuf)
		if n > 0 {
			f.dec.Feed(readBuf[:n])
		}
		if err != nil {
			f.t.Fatalf("fakeServer read error: %v", err)
		}
	}
}

func (f *fakeServer) send(typeID byte, payload []byte) {
	f.t.Helper()
	if _, err := f.conn.Write(EncodeFrame(typeID, payload)); err != nil {
		f.t.Fatalf("fakeServer write error: %v", err)
	}
}

// generateSelfSignedTLSConfigs produces a matched server/client TLS config
// pair for exercising Connection.Upgrade end to end without a CA.
func generateSelfSignedTLSConfigs(t *testing.T) (serverCfg, clientCfg *tls.Config) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "xproto-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}

	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}

	pool := x509.NewCertPool()
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parsing certificate: %v", err)
	}
	pool.AddCert(leaf)

	serverCfg = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	clientCfg = &tls.Config{RootCAs: pool, ServerName: "xproto-test", MinVersion: tls.VersionTLS12}
	return serverCfg, clientCfg
}
