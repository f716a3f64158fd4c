package canonical

import "strings"

// NormalizeKey canonicalizes a placeholder key: surrounding whitespace and a
// wrapping "{{ }}" pair are removed and the result is uppercased.
// NormalizeKey(NormalizeKey(k)) == NormalizeKey(k) for every k.
func NormalizeKey(key string) string {
	k := strings.TrimSpace(key)
	for len(k) >= 4 && strings.HasPrefix(k, "{{") && strings.HasSuffix(k, "}}") {
		k = strings.TrimSpace(k[2 : len(k)-2])
	}
	return strings.ToUpper(k)
}

// NormalizeDomain reduces a URL, host or domain to its bare lowercase domain:
// scheme, path, query and leading "www." labels are removed.
// An empty result means no identity is available; callers must not create
// records keyed by it.
func NormalizeDomain(input string) string {
	d := strings.ToLower(strings.TrimSpace(input))
	if rest, ok := strings.CutPrefix(d, "https://"); ok {
		d = rest
	} else if rest, ok := strings.CutPrefix(d, "http://"); ok {
		d = rest
	}
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	if i := strings.IndexByte(d, '?'); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimSpace(d)
	for strings.HasPrefix(d, "www.") {
		d = strings.TrimSpace(strings.TrimPrefix(d, "www."))
	}
	return d
}

// DomainFromEmail returns the normalized domain of an e-mail address, or ""
// when addr has no "@" or nothing after it.
func DomainFromEmail(addr string) string {
	i := strings.LastIndexByte(addr, '@')
	if i < 0 {
		return ""
	}
	return NormalizeDomain(addr[i+1:])
}

func trimKey(k string) string {
	return strings.TrimSpace(k)
}
