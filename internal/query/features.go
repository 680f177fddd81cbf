// Package query translates generic URL parameters into Mongo find
// directives: filter, sort, projection and pagination. The four builder
// methods are independent and chain onto one accumulator, so call order
// does not matter.
package query

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// reserved keys drive pagination/sort/projection and never become filters.
var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

var operators = map[string]string{"gte": "$gte", "gt": "$gt", "lte": "$lte", "lt": "$lt"}

type Features struct {
	values     url.Values
	filter     bson.M
	sort       bson.D
	projection bson.M
	skip       int64
	limit      int64
}

func New(values url.Values) *Features {
	return &Features{values: values, filter: bson.M{}}
}

// Filter applies the remaining parameters as equality filters, rewriting
// bracketed comparison suffixes (price[gte]=500) into operator form.
func (f *Features) Filter() *Features {
	for key, vals := range f.values {
		if reserved[key] || len(vals) == 0 {
			continue
		}
		v := cast(vals[0])
		if field, op, ok := splitOperator(key); ok {
			m, _ := f.filter[field].(bson.M)
			if m == nil {
				m = bson.M{}
			}
			m[op] = v
			f.filter[field] = m
			continue
		}
		f.filter[key] = v
	}
	return f
}

// Sort parses a comma-separated list, "-" prefix meaning descending.
// Unspecified sorts newest-first.
func (f *Features) Sort() *Features {
	s := f.values.Get("sort")
	if s == "" {
		f.sort = bson.D{{Key: "created_at", Value: -1}}
		return f
	}
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = field[1:]
		}
		f.sort = append(f.sort, bson.E{Key: field, Value: dir})
	}
	return f
}

// LimitFields turns "fields" into an inclusion projection; the default
// only drops the legacy version marker carried over from the old schema.
func (f *Features) LimitFields() *Features {
	s := f.values.Get("fields")
	if s == "" {
		f.projection = bson.M{"__v": 0}
		return f
	}
	f.projection = bson.M{}
	for _, field := range strings.Split(s, ",") {
		if field = strings.TrimSpace(field); field != "" {
			f.projection[field] = 1
		}
	}
	return f
}

// Paginate converts page/limit to skip/limit. Limit is capped so a single
// request cannot ask for an unbounded result set.
func (f *Features) Paginate() *Features {
	page := atoiDefault(f.values.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := atoiDefault(f.values.Get("limit"), DefaultLimit)
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	f.limit = int64(limit)
	f.skip = int64(page-1) * f.limit
	return f
}

// FilterDocument is the accumulated match document for Find.
func (f *Features) FilterDocument() bson.M { return f.filter }

// FindOptions materializes sort/projection/pagination as driver options.
func (f *Features) FindOptions() *options.FindOptions {
	opts := options.Find()
	if len(f.sort) > 0 {
		opts.SetSort(f.sort)
	}
	if len(f.projection) > 0 {
		opts.SetProjection(f.projection)
	}
	if f.limit > 0 {
		opts.SetLimit(f.limit)
		opts.SetSkip(f.skip)
	}
	return opts
}

func splitOperator(key string) (field, op string, ok bool) {
	i := strings.IndexByte(key, '[')
	if i <= 0 || !strings.HasSuffix(key, "]") {
		return "", "", false
	}
	if mongoOp, known := operators[key[i+1:len(key)-1]]; known {
		return key[:i], mongoOp, true
	}
	return "", "", false
}

// cast keeps comparisons meaningful: numbers and booleans are stored typed
// in Mongo, so "500" must match as 500.
func cast(s string) interface{} {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
