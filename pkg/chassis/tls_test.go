package chassis

import (
	"crypto/x509"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTLSConfig_Disabled(t *testing.T) {
	cfg, err := TLSConfig(TLSOptions{})
	if err != nil || cfg != nil {
		t.Fatalf("TLSConfig = %v, %v, want nil, nil", cfg, err)
	}
}

func TestTLSConfig_MissingKey(t *testing.T) {
	if _, err := TLSConfig(TLSOptions{CertFile: "cert.pem"}); err == nil {
		t.Error("expected error for cert without key")
	}
}

func TestGenerateSelfSignedCert_Hosts(t *testing.T) {
	cert, err := GenerateSelfSignedCert("roll.office.lan", "192.168.1.20")
	if err != nil {
		t.Fatalf("GenerateSelfSignedCert: %v", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if err := leaf.VerifyHostname("roll.office.lan"); err != nil {
		t.Errorf("dns name: %v", err)
	}
	if err := leaf.VerifyHostname("192.168.1.20"); err != nil {
		t.Errorf("ip: %v", err)
	}
	if err := leaf.VerifyHostname("localhost"); err != nil {
		t.Errorf("localhost: %v", err)
	}
}

func TestTLSConfig_SelfSignedServes(t *testing.T) {
	cfg, err := TLSConfig(TLSOptions{SelfSigned: true})
	if err != nil {
		t.Fatalf("TLSConfig: %v", err)
	}
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	ts.TLS = cfg
	ts.StartTLS()
	defer ts.Close()

	// ts.Client trusts the server's own certificate, so this verifies the
	// generated cert covers 127.0.0.1.
	resp, err := ts.Client().Get(ts.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}
