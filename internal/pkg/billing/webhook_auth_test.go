package billing

import "testing"

func TestVerifyRelaySecret(t *testing.T) {
	tests := []struct {
		name   string
		header string
		secret string
		want   bool
	}{
		{name: "exact match", header: "s3cret", secret: "s3cret", want: true},
		{name: "bearer prefix", header: "Bearer s3cret", secret: "s3cret", want: true},
		{name: "wrong secret", header: "wrong", secret: "s3cret", want: false},
		{name: "missing header", header: "", secret: "s3cret", want: false},
		{name: "no secret configured", header: "anything", secret: "", want: true},
		{name: "no secret no header", header: "", secret: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyRelaySecret(tt.header, tt.secret); got != tt.want {
				t.Fatalf("VerifyRelaySecret(%q, %q) = %v, want %v", tt.header, tt.secret, got, tt.want)
			}
		})
	}
}
