package s3blob

import "testing"

func TestNormaliseEndpoint(t *testing.T) {
	cases := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"localhost:9000", false, "http://localhost:9000"},
		{"s3.example.com", true, "https://s3.example.com"},
		{"http://minio:9000", true, "http://minio:9000"},
	}
	for _, tc := range cases {
		if got := normaliseEndpoint(tc.in, tc.useSSL); got != tc.want {
			t.Errorf("normaliseEndpoint(%q, %v): expected %s, got %s", tc.in, tc.useSSL, tc.want, got)
		}
	}
}
