// Package contract defines the domain types for data contracts: the
// metadata record and the patch values used for partial updates.
package contract

import (
	"encoding/json"
	"time"
)

// Status assigned to every newly created contract.
const StatusDraft = "DRAFT"

// Well-known record field names. Everything else a caller attaches via
// a patch lands in Record.Fields.
const (
	FieldContractID  = "contract_id"
	FieldOwner       = "owner"
	FieldCreatedTime = "created_time"
	FieldStatus      = "status"
	FieldS3Path      = "s3_path"
)

// Record is a contract's metadata entry. The YAML document itself lives
// in the blob store and is not part of the record.
type Record struct {
	ContractID  string
	Owner       string
	CreatedTime string // RFC 3339, UTC
	Status      string
	S3Path      string

	// Fields holds free-form caller-added attributes from partial
	// updates. There is no fixed schema for these.
	Fields map[string]any
}

// NewRecord builds a fresh record with default status and the current
// creation timestamp.
func NewRecord(id, owner, location string) Record {
	return Record{
		ContractID:  id,
		Owner:       owner,
		CreatedTime: time.Now().UTC().Format(time.RFC3339),
		Status:      StatusDraft,
		S3Path:      location,
	}
}

// AsMap flattens the record into a single map, the shape both stores
// persist and both transports serialize.
func (r Record) AsMap() map[string]any {
	m := make(map[string]any, 5+len(r.Fields))
	for k, v := range r.Fields {
		m[k] = v
	}
	m[FieldContractID] = r.ContractID
	m[FieldOwner] = r.Owner
	m[FieldCreatedTime] = r.CreatedTime
	m[FieldStatus] = r.Status
	m[FieldS3Path] = r.S3Path
	return m
}

// RecordFromMap is the inverse of AsMap: known keys populate the typed
// fields, the rest become free-form Fields.
func RecordFromMap(m map[string]any) Record {
	var r Record
	for k, v := range m {
		switch k {
		case FieldContractID:
			r.ContractID, _ = v.(string)
		case FieldOwner:
			r.Owner, _ = v.(string)
		case FieldCreatedTime:
			r.CreatedTime, _ = v.(string)
		case FieldStatus:
			r.Status, _ = v.(string)
		case FieldS3Path:
			r.S3Path, _ = v.(string)
		default:
			if r.Fields == nil {
				r.Fields = make(map[string]any)
			}
			r.Fields[k] = v
		}
	}
	return r
}

// MarshalJSON serializes the record as one flat object, caller-added
// fields included.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.AsMap())
}

// Detail is a record joined with its YAML document. YAML is nil when the
// blob is missing, which is a tolerated degraded state rather than an
// error.
type Detail struct {
	Record Record
	YAML   *string
}

// MarshalJSON flattens the record and attaches the yaml key.
func (d Detail) MarshalJSON() ([]byte, error) {
	m := d.Record.AsMap()
	m["yaml"] = d.YAML
	return json.Marshal(m)
}
