package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Logical custom field keys used by the billing pipeline.
const (
	KeyTotalAmountPaid = "total_amount_paid"
	KeyPatientAccount  = "patient_account"
	KeyPatientName     = "patient_name"
	KeyLocationName    = "location_name"
	KeyInsuranceName   = "insurance_name"
)

// LogicalKeys lists every custom field the pipeline writes. All must resolve
// before any contact is pushed.
var LogicalKeys = []string{
	KeyTotalAmountPaid,
	KeyPatientAccount,
	KeyPatientName,
	KeyLocationName,
	KeyInsuranceName,
}

// FieldIDs maps logical keys to the location's custom field ids.
type FieldIDs map[string]string

// fieldDescriptor is one entry from the location custom fields listing. The
// API is loose about which of these it populates, so matching considers all
// of them.
type fieldDescriptor struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Label    string `json:"label"`
	FieldKey string `json:"fieldKey"`
}

var nonKeyChars = regexp.MustCompile(`[^a-z0-9_]+`)

// normalizeKey lowercases and collapses a descriptor value so that
// "Total Amount Paid" and "contact.total_amount_paid" both reduce to the
// bare logical key.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	s = nonKeyChars.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func (d fieldDescriptor) candidates() []string {
	return []string{d.Key, d.FieldKey, d.Name, d.Label}
}

// matchExact reports whether any descriptor candidate is literally
// "contact.<key>", the canonical form the API uses for contact fields.
func (d fieldDescriptor) matchExact(key string) bool {
	want := "contact." + key
	for _, c := range d.candidates() {
		if strings.EqualFold(strings.TrimSpace(c), want) {
			return true
		}
	}
	return false
}

// matchNormalized reports whether any candidate reduces to the bare key.
func (d fieldDescriptor) matchNormalized(key string) bool {
	for _, c := range d.candidates() {
		if c != "" && normalizeKey(c) == key {
			return true
		}
	}
	return false
}

// ResolveFieldIDs fetches the location's custom fields and maps every logical
// key to a field id. An exact "contact.<key>" match wins over a normalized
// name match; within a tier the first listed descriptor wins. Any key left
// unresolved is an error, since pushing with a missing id would silently drop
// that column.
func (c *Client) ResolveFieldIDs(ctx context.Context) (FieldIDs, error) {
	body, err := c.do(ctx, http.MethodGet, "/locations/"+c.locationID+"/customFields", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list custom fields: %w", err)
	}

	// The listing payload key differs between API revisions.
	var listing struct {
		CustomFields []fieldDescriptor `json:"customFields"`
		Items        []fieldDescriptor `json:"items"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode custom fields: %w", err)
	}
	descriptors := listing.CustomFields
	if len(descriptors) == 0 {
		descriptors = listing.Items
	}

	ids := make(FieldIDs, len(LogicalKeys))
	var missing []string
	for _, key := range LogicalKeys {
		id := ""
		for _, d := range descriptors {
			if d.matchExact(key) {
				id = d.ID
				break
			}
		}
		if id == "" {
			for _, d := range descriptors {
				if d.matchNormalized(key) {
					id = d.ID
					break
				}
			}
		}
		if id == "" {
			missing = append(missing, key)
			continue
		}
		ids[key] = id
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("location %s has no custom field for: %s", c.locationID, strings.Join(missing, ", "))
	}
	return ids, nil
}
