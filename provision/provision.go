package provision

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/msolakov/pdns-facade/pdns"
)

// soaEditAPI makes the server bump the zone serial on every API change.
const soaEditAPI = "INCEPTION-INCREMENT"

var recordTypes = map[string]bool{
	"A":     true,
	"AAAA":  true,
	"CNAME": true,
	"TXT":   true,
	"MX":    true,
	"NS":    true,
	"SRV":   true,
	"SOA":   true,
	"PTR":   true,
}

// ZoneClient is the part of the PowerDNS client the facade depends on.
// Implemented by *pdns.Client; tests substitute fakes.
type ZoneClient interface {
	CreateZone(ctx context.Context, zone pdns.Zone) (*pdns.Zone, error)
	GetZone(ctx context.Context, name string) (*pdns.Zone, error)
	ReplaceRRset(ctx context.Context, zone string, rrset pdns.RRset) error
	DeleteRRset(ctx context.Context, zone, typ, name string) error
	DeleteZone(ctx context.Context, name string) error
}

type Config struct {
	// Nameservers is the NS set every new zone is created with.
	Nameservers []string
	// Hostmaster is the administrative contact written into new zone SOAs.
	Hostmaster string
	// DefaultTTL applies when a request leaves the ttl out.
	DefaultTTL int
	// SecondaryDeleteRetries bounds the best-effort retry of zone deletion
	// on the secondary server. Zero means a single attempt.
	SecondaryDeleteRetries uint64
}

// Facade translates provisioning operations into PowerDNS API calls against
// the primary server, and for zone deletion also the secondary. It holds no
// zone state of its own; every read goes to the server.
type Facade struct {
	primary   ZoneClient
	secondary ZoneClient
	cfg       Config
	logger    *slog.Logger
}

func New(primary, secondary ZoneClient, cfg Config, logger *slog.Logger) *Facade {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 3600
	}

	return &Facade{
		primary:   primary,
		secondary: secondary,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreateDomain creates the zone and then an A record for the bare zone name.
// The record step only runs after zone creation succeeded, so a failed zone
// creation never leaves orphan records behind. A failed record step can leave
// the zone without its A record; callers detect that with a follow-up read.
func (f *Facade) CreateDomain(ctx context.Context, name, ip string, ttl int) error {
	if err := validateZoneName(name); err != nil {
		return err
	}
	if err := validateIP(ip); err != nil {
		return err
	}

	zone := pdns.Zone{
		Name:        name,
		Kind:        pdns.KindMaster,
		Nameservers: f.cfg.Nameservers,
		SOAEditAPI:  soaEditAPI,
		RRsets: []pdns.RRset{
			f.soaRRset(name),
		},
	}

	if _, err := f.primary.CreateZone(ctx, zone); err != nil {
		return fmt.Errorf("failed to create zone %s: %w", name, err)
	}

	f.logger.Info("created zone", "zone", name)

	record := pdns.RRset{
		Name:    name,
		Type:    "A",
		TTL:     f.ttlOrDefault(ttl),
		Records: []pdns.Record{{Content: ip}},
	}

	if err := f.primary.ReplaceRRset(ctx, name, record); err != nil {
		return fmt.Errorf("failed to create A record for %s: %w", name, err)
	}

	return nil
}

// UpdateDomainIP replaces the zone's own A record with the new ip.
// No other side effects.
func (f *Facade) UpdateDomainIP(ctx context.Context, name, ip string) error {
	if err := validateZoneName(name); err != nil {
		return err
	}
	if err := validateIP(ip); err != nil {
		return err
	}

	record := pdns.RRset{
		Name:    name,
		Type:    "A",
		TTL:     f.cfg.DefaultTTL,
		Records: []pdns.Record{{Content: ip}},
	}

	return f.primary.ReplaceRRset(ctx, name, record)
}

// GetDomain returns the zone's full snapshot unmodified.
func (f *Facade) GetDomain(ctx context.Context, name string) (*pdns.Zone, error) {
	if err := validateZoneName(name); err != nil {
		return nil, err
	}

	return f.primary.GetZone(ctx, name)
}

// DeleteDomain deletes the zone on the primary server and then attempts the
// same on the secondary. Secondary deletion is best-effort: secondaries
// mirror zones and commonly reject direct deletion, and that failure must
// not mask a successful primary deletion.
func (f *Facade) DeleteDomain(ctx context.Context, name string) error {
	if err := validateZoneName(name); err != nil {
		return err
	}

	if err := f.primary.DeleteZone(ctx, name); err != nil {
		return fmt.Errorf("failed to delete zone %s: %w", name, err)
	}

	f.logger.Info("deleted zone on primary", "zone", name)

	op := func() error {
		return f.secondary.DeleteZone(ctx, name)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.cfg.SecondaryDeleteRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		f.logger.Warn("ignoring zone deletion failure on secondary", "zone", name, "error", err)
	}

	return nil
}

// RecordFilter narrows a record listing. Empty fields are not applied;
// supplied fields must match exactly.
type RecordFilter struct {
	Type string
	Name string
	TTL  string
}

func (rf RecordFilter) empty() bool {
	return rf.Type == "" && rf.Name == "" && rf.TTL == ""
}

func (rf RecordFilter) matches(rrset pdns.RRset) bool {
	if rf.Type != "" && rrset.Type != rf.Type {
		return false
	}
	if rf.Name != "" && rrset.Name != rf.Name {
		return false
	}
	if rf.TTL != "" && strconv.Itoa(rrset.TTL) != rf.TTL {
		return false
	}

	return true
}

// ListRecords fetches the zone snapshot and keeps the rrsets matching the
// filter. A snapshot without an rrset array is a data error, not an
// absence of matches.
func (f *Facade) ListRecords(ctx context.Context, zone string, filter RecordFilter) ([]pdns.RRset, error) {
	snapshot, err := f.snapshotRRsets(ctx, zone)
	if err != nil {
		return nil, err
	}

	if filter.empty() {
		return snapshot, nil
	}

	filtered := []pdns.RRset{}
	for _, rrset := range snapshot {
		if filter.matches(rrset) {
			filtered = append(filtered, rrset)
		}
	}

	return filtered, nil
}

// ListRecordsByType keeps the rrsets whose type matches case-insensitively.
func (f *Facade) ListRecordsByType(ctx context.Context, zone, typ string) ([]pdns.RRset, error) {
	snapshot, err := f.snapshotRRsets(ctx, zone)
	if err != nil {
		return nil, err
	}

	filtered := []pdns.RRset{}
	for _, rrset := range snapshot {
		if strings.EqualFold(rrset.Type, typ) {
			filtered = append(filtered, rrset)
		}
	}

	return filtered, nil
}

// GetRecord returns the first rrset matching the type (case-insensitive) and
// the fully-qualified name, or nil when the zone has no such rrset.
func (f *Facade) GetRecord(ctx context.Context, zone, typ, name string) (*pdns.RRset, error) {
	snapshot, err := f.snapshotRRsets(ctx, zone)
	if err != nil {
		return nil, err
	}

	for i := range snapshot {
		if strings.EqualFold(snapshot[i].Type, typ) && snapshot[i].Name == name {
			return &snapshot[i], nil
		}
	}

	return nil, nil
}

// CreateRecord creates or replaces the rrset wholesale.
func (f *Facade) CreateRecord(ctx context.Context, zone, typ, name, content string, ttl int) error {
	if err := validateZoneName(zone); err != nil {
		return err
	}
	if err := validateRecordName(name); err != nil {
		return err
	}
	if err := validateRecordType(typ); err != nil {
		return err
	}
	if content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	rrset := pdns.RRset{
		Name:    name,
		Type:    strings.ToUpper(typ),
		TTL:     f.ttlOrDefault(ttl),
		Records: []pdns.Record{{Content: content}},
	}

	return f.primary.ReplaceRRset(ctx, zone, rrset)
}

// DeleteRecord removes the rrset identified by (type, name).
func (f *Facade) DeleteRecord(ctx context.Context, zone, typ, name string) error {
	if err := validateZoneName(zone); err != nil {
		return err
	}
	if err := validateRecordName(name); err != nil {
		return err
	}
	if err := validateRecordType(typ); err != nil {
		return err
	}

	return f.primary.DeleteRRset(ctx, zone, strings.ToUpper(typ), name)
}

func (f *Facade) snapshotRRsets(ctx context.Context, zone string) ([]pdns.RRset, error) {
	if err := validateZoneName(zone); err != nil {
		return nil, err
	}

	snapshot, err := f.primary.GetZone(ctx, zone)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch zone %s: %w", zone, err)
	}

	if snapshot.RRsets == nil {
		return nil, &SnapshotError{Zone: zone, Reason: "missing rrsets"}
	}

	return snapshot.RRsets, nil
}

func (f *Facade) soaRRset(zone string) pdns.RRset {
	primaryNS := zone
	if len(f.cfg.Nameservers) > 0 {
		primaryNS = f.cfg.Nameservers[0]
	}

	// Serial 0: the SOA-EDIT-API policy takes over serial management.
	content := fmt.Sprintf("%s %s 0 10800 3600 604800 3600", primaryNS, f.cfg.Hostmaster)

	return pdns.RRset{
		Name:    zone,
		Type:    "SOA",
		TTL:     f.cfg.DefaultTTL,
		Records: []pdns.Record{{Content: content}},
	}
}

func (f *Facade) ttlOrDefault(ttl int) int {
	if ttl > 0 {
		return ttl
	}

	return f.cfg.DefaultTTL
}

func validateZoneName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !strings.HasSuffix(name, ".") {
		return &ValidationError{Field: "name", Reason: "must be fully qualified (trailing dot)"}
	}

	return nil
}

func validateRecordName(name string) error {
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !strings.HasSuffix(name, ".") {
		return &ValidationError{Field: "name", Reason: "must be fully qualified (trailing dot)"}
	}

	return nil
}

func validateRecordType(typ string) error {
	if typ == "" {
		return &ValidationError{Field: "type", Reason: "must not be empty"}
	}
	if !recordTypes[strings.ToUpper(typ)] {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown record type %q", typ)}
	}

	return nil
}

func validateIP(ip string) error {
	if ip == "" {
		return &ValidationError{Field: "ip_address", Reason: "must not be empty"}
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return &ValidationError{Field: "ip_address", Reason: "must be an IPv4 address"}
	}

	return nil
}
