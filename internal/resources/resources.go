// Package resources is the static registry of the back-office CRUD resources.
// The CLI uses it to build commands and request paths; the server uses it to
// mount handlers and validate payloads.
package resources

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Op is a bit set of supported operations
type Op uint8

const (
	OpList Op = 1 << iota
	OpGet
	OpCreate
	OpUpdate
	OpDelete

	opAll = OpList | OpGet | OpCreate | OpUpdate | OpDelete
	// transactions have no single-item read
	opTransaction = OpList | OpCreate | OpUpdate | OpDelete
)

// Resource describes one CRUD collection exposed by the backend
type Resource struct {
	Name     string
	Singular string
	// Path is the collection path; items live at Path/:id
	Path string
	// Columns are the fields shown in table output
	Columns []string
	// Required fields must be present on create
	Required []string
	Ops      Op
	// StoreListPath lists the collection for one store, with %s for the store ID
	StoreListPath string
	// StoreCreatePath creates an item inside a store, with %s for the store ID
	StoreCreatePath string
	// Statuses are the accepted values for a status filter, empty when unsupported
	Statuses []string
}

var registry = map[string]Resource{
	"stores": {
		Name:     "stores",
		Singular: "store",
		Path:     "/stores",
		Columns:  []string{"id", "name", "address", "phone", "email"},
		Required: []string{"name"},
		Ops:      opAll,
	},
	"products": {
		Name:            "products",
		Singular:        "product",
		Path:            "/products",
		Columns:         []string{"id", "name", "price", "quantity", "description"},
		Required:        []string{"name", "price"},
		Ops:             opAll,
		StoreListPath:   "/stores/%s/products",
		StoreCreatePath: "/stores/%s/products",
	},
	"brands": {
		Name:          "brands",
		Singular:      "brand",
		Path:          "/brands",
		Columns:       []string{"id", "name", "description"},
		Required:      []string{"name"},
		Ops:           opAll,
		StoreListPath: "/brands/store/%s",
	},
	"categories": {
		Name:          "categories",
		Singular:      "category",
		Path:          "/categories",
		Columns:       []string{"id", "name", "description"},
		Required:      []string{"name"},
		Ops:           opAll,
		StoreListPath: "/categories/store/%s",
	},
	"orders": {
		Name:          "orders",
		Singular:      "order",
		Path:          "/orders",
		Columns:       []string{"id", "storeId", "status", "createdAt"},
		Required:      []string{"storeId"},
		Ops:           opAll,
		StoreListPath: "/stores/%s/orders",
		Statuses:      []string{"cart", "completed", "cancelled"},
	},
	"incomes": {
		Name:     "incomes",
		Singular: "income",
		Path:     "/incomes",
		Columns:  []string{"id", "storeId", "amount", "source", "createdAt"},
		Required: []string{"storeId", "amount"},
		Ops:      opTransaction,
	},
	"expenses": {
		Name:     "expenses",
		Singular: "expense",
		Path:     "/expenses",
		Columns:  []string{"id", "storeId", "amount", "category", "createdAt"},
		Required: []string{"storeId", "amount"},
		Ops:      opTransaction,
	},
	"sales": {
		Name:     "sales",
		Singular: "sale",
		Path:     "/sales",
		Columns:  []string{"id", "storeId", "amount", "quantity", "createdAt"},
		Required: []string{"storeId", "amount"},
		Ops:      opTransaction,
	},
	"purchases": {
		Name:     "purchases",
		Singular: "purchase",
		Path:     "/purchases",
		Columns:  []string{"id", "storeId", "amount", "vendor", "quantity", "createdAt"},
		Required: []string{"storeId", "amount"},
		Ops:      opTransaction,
	},
}

// Lookup finds a resource by plural or singular name
func Lookup(name string) (Resource, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if r, ok := registry[name]; ok {
		return r, true
	}
	for _, r := range registry {
		if r.Singular == name {
			return r, true
		}
	}
	return Resource{}, false
}

// All returns every resource sorted by name
func All() []Resource {
	all := make([]Resource, 0, len(registry))
	for _, r := range registry {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Names returns the plural resource names, sorted
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, r := range all {
		names[i] = r.Name
	}
	return names
}

// Supports reports whether every operation in op is available
func (r Resource) Supports(op Op) bool {
	return r.Ops&op == op
}

// StoreScoped reports whether the resource can be listed per store
func (r Resource) StoreScoped() bool {
	return r.StoreListPath != ""
}

// ItemPath returns the path of a single item
func (r Resource) ItemPath(id string) string {
	return r.Path + "/" + url.PathEscape(id)
}

// ListPath returns the collection path and query for a listing. An empty
// storeID lists the whole collection.
func (r Resource) ListPath(storeID, status string) (string, url.Values, error) {
	query := url.Values{}

	if status != "" {
		if !r.validStatus(status) {
			if len(r.Statuses) == 0 {
				return "", nil, fmt.Errorf("%s cannot be filtered by status", r.Name)
			}
			return "", nil, fmt.Errorf("invalid status %q (expected one of: %s)", status, strings.Join(r.Statuses, ", "))
		}
		if storeID == "" {
			return "", nil, fmt.Errorf("filtering %s by status requires a store", r.Name)
		}
		query.Set("status", status)
	}

	if storeID == "" {
		return r.Path, query, nil
	}

	if !r.StoreScoped() {
		return "", nil, fmt.Errorf("%s cannot be listed per store", r.Name)
	}

	return fmt.Sprintf(r.StoreListPath, url.PathEscape(storeID)), query, nil
}

// CreatePath returns the path to POST a new item to. Resources with a
// store-scoped create endpoint use it when storeID is set.
func (r Resource) CreatePath(storeID string) string {
	if storeID != "" && r.StoreCreatePath != "" {
		return fmt.Sprintf(r.StoreCreatePath, url.PathEscape(storeID))
	}
	return r.Path
}

// ValidateCreate checks that all required fields are present and non-empty
func (r Resource) ValidateCreate(data map[string]any) error {
	var missing []string
	for _, field := range r.Required {
		v, ok := data[field]
		if !ok || v == nil {
			missing = append(missing, field)
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s requires: %s", r.Singular, strings.Join(missing, ", "))
	}
	return nil
}

func (r Resource) validStatus(status string) bool {
	for _, s := range r.Statuses {
		if s == status {
			return true
		}
	}
	return false
}
