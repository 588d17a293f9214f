package probe

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// DNS classes reported by Diagnose.
const (
	DNSResolves     = "RESOLVES"
	DNSNoRecord     = "NO_A_RECORD"
	DNSNXDomain     = "NXDOMAIN"
	DNSUnavailable  = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName  = "INVALID_NAME"
	diagnoseTimeout = 3 * time.Second
)

// Resolver is the subset of *net.Resolver used by Diagnose.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// Diagnosis explains why the portal host could not be reached.
type Diagnosis struct {
	Host          string
	Class         string
	Addrs         []string
	Nameservers   []string
	ResolverError string
}

// Diagnose classifies the DNS state of the host in rawURL. It is only a
// hint for the logs after a NetworkError; it never changes the outcome.
func Diagnose(ctx context.Context, r Resolver, rawURL string) Diagnosis {
	d := Diagnosis{Host: hostOf(rawURL)}
	if d.Host == "" {
		d.Class = DNSInvalidName
		return d
	}
	if r == nil {
		r = net.DefaultResolver
	}
	ctx, cancel := context.WithTimeout(ctx, diagnoseTimeout)
	defer cancel()

	addrs, err := r.LookupIPAddr(ctx, d.Host)
	if err == nil && len(addrs) > 0 {
		for _, a := range addrs {
			d.Addrs = append(d.Addrs, a.String())
		}
		d.Class = DNSResolves
		return d
	}
	if err != nil {
		d.ResolverError = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) {
			switch {
			case de.IsNotFound:
				d.Class = DNSNXDomain
			case de.IsTemporary || de.Timeout():
				d.Class = DNSUnavailable
			}
		}
	}

	if ns, err := r.LookupNS(ctx, d.Host); err == nil && len(ns) > 0 {
		for _, n := range ns {
			d.Nameservers = append(d.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		if d.Class == "" || d.Class == DNSNXDomain {
			d.Class = DNSNoRecord
		}
	}

	if d.Class == "" {
		if d.ResolverError != "" {
			d.Class = DNSUnavailable
		} else {
			d.Class = DNSNXDomain
		}
	}
	return d
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}
