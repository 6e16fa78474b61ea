package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/storegate/storegate-go/internal/ipaddr"
)

// MMDBResolver resolves countries from a local MaxMind or DB-IP country
// database. Used when geo lookups must not leave the host.
type MMDBResolver struct {
	db *geoip2.Reader
}

// OpenMMDB opens a country database at path.
func OpenMMDB(path string) (*MMDBResolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geo database: %w", err)
	}
	return &MMDBResolver{db: db}, nil
}

// Lookup implements Resolver.
func (r *MMDBResolver) Lookup(_ context.Context, ip string) (*Result, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("unparseable address %q", ip)
	}

	record, err := r.db.Country(parsed)
	if err != nil {
		return nil, err
	}
	if record.Country.IsoCode == "" {
		return nil, fmt.Errorf("no country record for %s", ip)
	}

	return &Result{
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
		IP:          ip,
		IPVersion:   ipaddr.Version(ip),
	}, nil
}

// Close releases the database handle.
func (r *MMDBResolver) Close() error {
	return r.db.Close()
}
