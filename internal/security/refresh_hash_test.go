package security

import "testing"

func TestHashRefreshToken_Deterministic(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	refresh, _, _, err := p.IssueRefresh("s1", "u1", "t1", 0)
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	h1, h2 := HashRefreshToken(refresh), HashRefreshToken(refresh)
	if h1 != h2 {
		t.Errorf("hash not deterministic: %q vs %q", h1, h2)
	}
	if h1 == refresh {
		t.Error("hash equals the raw token")
	}
	if other := HashRefreshToken(refresh + "x"); other == h1 {
		t.Error("distinct tokens produced the same hash")
	}
}

func TestRefreshTokenHashEqual(t *testing.T) {
	stored := HashRefreshToken("session-token-a")
	cases := []struct {
		name  string
		token string
		hash  string
		want  bool
	}{
		{"matching token", "session-token-a", stored, true},
		{"different token", "session-token-b", stored, false},
		{"truncated stored hash", "session-token-a", stored[:len(stored)-1], false},
		{"empty stored hash", "session-token-a", "", false},
		{"empty token against real hash", "", stored, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RefreshTokenHashEqual(tc.token, tc.hash); got != tc.want {
				t.Errorf("RefreshTokenHashEqual = %v, want %v", got, tc.want)
			}
		})
	}
}
