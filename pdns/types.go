package pdns

// Zone represents a zone as returned by the PowerDNS zones API.
// The name carries the trailing dot.
type Zone struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Kind        string   `json:"kind,omitempty"`
	Account     string   `json:"account,omitempty"`
	Serial      int      `json:"serial,omitempty"`
	SOAEdit     string   `json:"soa_edit,omitempty"`
	SOAEditAPI  string   `json:"soa_edit_api,omitempty"`
	Masters     []string `json:"masters,omitempty"`
	Nameservers []string `json:"nameservers,omitempty"`
	RRsets      []RRset  `json:"rrsets,omitempty"`
}

// RRset is the group of records sharing one (name, type) with a common TTL.
type RRset struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	TTL        int      `json:"ttl,omitempty"`
	ChangeType string   `json:"changetype,omitempty"`
	Records    []Record `json:"records"`
}

// Record is a single record inside an RRset.
type Record struct {
	Content  string `json:"content"`
	Disabled bool   `json:"disabled"`
}

// Changetypes accepted by the zone PATCH endpoint.
const (
	ChangeTypeReplace = "REPLACE"
	ChangeTypeDelete  = "DELETE"
)

// Zone kinds.
const (
	KindMaster = "Master"
	KindSlave  = "Slave"
	KindNative = "Native"
)

type zonePatch struct {
	RRsets []RRset `json:"rrsets"`
}

// APIError is the error body the PowerDNS API returns on failures.
type APIError struct {
	Error string `json:"error"`
}
