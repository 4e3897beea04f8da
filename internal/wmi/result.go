package wmi

import "bytes"

// Property is one named value of a WMI object.
type Property struct {
	Name  string
	Value Value
}

// Record is one query result object. Properties keep the order in which the
// subsystem reported them.
type Record struct {
	props []Property
	index map[string]int
}

func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// Set adds a property, replacing the value of an existing one with the same
// name in place.
func (r *Record) Set(name string, v Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.props[i].Value = v
		return
	}
	r.index[name] = len(r.props)
	r.props = append(r.props, Property{Name: name, Value: v})
}

func (r *Record) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.props[i].Value, true
}

func (r *Record) Len() int { return len(r.props) }

// Properties returns a copy of the record's properties in reported order.
func (r *Record) Properties() []Property {
	out := make([]Property, len(r.props))
	copy(out, r.props)
	return out
}

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range r.props {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := marshalJSON(p.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := p.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// QueryResult is the normalized outcome of one Execute call.
type QueryResult struct {
	Success   bool      `json:"success"`
	Namespace string    `json:"namespace"`
	Query     string    `json:"query"`
	Objects   []*Record `json:"objects"`
	Count     int       `json:"count"`
	Error     string    `json:"error"`
}

func newResult(namespace, query string) *QueryResult {
	return &QueryResult{
		Namespace: namespace,
		Query:     query,
		Objects:   []*Record{},
	}
}

func (r *QueryResult) fail(msg string) QueryResult {
	r.Success = false
	r.Objects = []*Record{}
	r.Count = 0
	r.Error = msg
	return *r
}

func (r *QueryResult) succeed() QueryResult {
	r.Success = true
	r.Count = len(r.Objects)
	r.Error = ""
	return *r
}
