package resolver

import (
	"context"
	"testing"
	"time"
)

func TestResolveLiteralIPv4ShortCircuits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addrs, err := Resolve(ctx, "127.0.0.1", 80, SockStream, PreferDualStack)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("expected exactly 1 address for a literal IP, got %d", len(addrs))
	}
	if addrs[0].Family != FamilyIPv4 {
		t.Fatalf("expected IPv4 family for 127.0.0.1")
	}
}

func TestResolveLiteralIPv6ShortCircuits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	addrs, err := Resolve(ctx, "::1", 80, SockStream, PreferIPv4Only)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(addrs) != 1 || addrs[0].Family != FamilyIPv6 {
		t.Fatalf("expected a single IPv6 address, got %+v", addrs)
	}
}

func TestFamilyOrderPreferences(t *testing.T) {
	cases := []struct {
		pref Preference
		want []Family
	}{
		{PreferIPv4Only, []Family{FamilyIPv4}},
		{PreferIPv6Only, []Family{FamilyIPv6}},
		{PreferIPv4Preferred, []Family{FamilyIPv4, FamilyIPv6}},
		{PreferIPv6Preferred, []Family{FamilyIPv6, FamilyIPv4}},
	}
	for _, c := range cases {
		got := familyOrder(c.pref)
		if len(got) != len(c.want) {
			t.Fatalf("pref %v: expected %v, got %v", c.pref, c.want, got)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("pref %v: expected %v, got %v", c.pref, c.want, got)
			}
		}
	}
}
