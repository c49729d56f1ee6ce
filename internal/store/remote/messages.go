package remote

import (
	"github.com/litetable/litetable-access/internal/filter"
	"github.com/litetable/litetable-access/internal/litetable"
	"github.com/litetable/litetable-access/internal/store"
)

type GetRequest struct {
	Row      litetable.RowKey `json:"row"`
	Families []string         `json:"families,omitempty"`
}

type GetResponse struct {
	Row *litetable.Row `json:"row,omitempty"`
}

type PutRequest struct {
	Put *store.Put `json:"put"`
}

type PutResponse struct{}

type DeleteRequest struct {
	Delete *store.Delete `json:"delete"`
}

type DeleteResponse struct{}

// CheckAndPutRequest distinguishes a nil Expected (cell must be absent) from an empty one.
type CheckAndPutRequest struct {
	Column   litetable.Column `json:"column"`
	Expected []byte           `json:"expected"`
	Put      *store.Put       `json:"put"`
}

type CheckAndPutResponse struct {
	Applied bool `json:"applied"`
}

// ScanRequest is the wire form of store.Scan. The filter travels as its source and is
// recompiled by the server.
type ScanRequest struct {
	Start    litetable.RowKey   `json:"start"`
	Stop     litetable.RowKey   `json:"stop"`
	Caching  int                `json:"caching"`
	Families []string           `json:"families,omitempty"`
	Columns  []litetable.Column `json:"columns,omitempty"`
	Filter   *filter.Source     `json:"filter,omitempty"`
}

// ScanResponse is one batch of a scan stream.
type ScanResponse struct {
	Rows []*litetable.Row `json:"rows"`
}

type BatchDeleteRequest struct {
	Deletes []*store.Delete `json:"deletes"`
}

// BatchDeleteResponse lists the deletes the store did not apply.
type BatchDeleteResponse struct {
	Remaining []*store.Delete `json:"remaining,omitempty"`
}

type CountRequest struct {
	Scan *ScanRequest `json:"scan"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}
