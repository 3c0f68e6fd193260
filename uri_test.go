package rtmp

import "testing"

func TestParseRtmpUri(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantErr  bool
		wantHost string
		wantPort int
		wantApp  string
		wantInst string
	}{
		{"full", "rtmp://example.com:1936/live/stream1", false, "example.com", 1936, "live", "stream1"},
		{"default port", "rtmp://example.com/live", false, "example.com", DefaultPort, "live", ""},
		{"missing scheme", "example.com/live", true, "", 0, "", ""},
		{"missing app", "rtmp://example.com", true, "", 0, "", ""},
		{"missing host", "rtmp:///live", true, "", 0, "", ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			u, err := ParseRtmpUri(c.raw)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.Host != c.wantHost || u.Port != c.wantPort || u.App != c.wantApp || u.Instance != c.wantInst {
				t.Fatalf("unexpected uri: %+v", u)
			}
		})
	}
}

func TestRtmpUriAddressAndStreamPath(t *testing.T) {
	u, err := ParseRtmpUri("rtmp://192.0.2.1:1935/app/inst")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Address() != "192.0.2.1:1935" {
		t.Fatalf("unexpected address: %s", u.Address())
	}
	if u.StreamPath() != "app/inst" {
		t.Fatalf("unexpected stream path: %s", u.StreamPath())
	}
	if u.String() != "rtmp://192.0.2.1:1935/app/inst" {
		t.Fatalf("unexpected string: %s", u.String())
	}
}
