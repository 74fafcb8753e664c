package dialog

import (
	"encoding/json"
	"testing"
)

func TestNewRecordSentinel(t *testing.T) {
	cases := []struct {
		name      string
		query     string
		wantQuery bool
	}{
		{name: "sentinel", query: "{{any}}", wantQuery: false},
		{name: "plain", query: "Hello", wantQuery: true},
		{name: "empty", query: "", wantQuery: true},
		{name: "padded sentinel", query: " {{any}}", wantQuery: true},
		{name: "other braces", query: "{{ANY}}", wantQuery: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRecord(map[string]string{ColumnQuery: tc.query, ColumnResponse: "x"})
			if r.HasQuery() != tc.wantQuery {
				t.Fatalf("HasQuery = %v, want %v", r.HasQuery(), tc.wantQuery)
			}
			if tc.wantQuery && *r.Query != tc.query {
				t.Fatalf("query = %q, want %q", *r.Query, tc.query)
			}
		})
	}
}

func TestQueryKeyEncode(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{name: "query only", fields: map[string]string{"Query": "Hello", "States": ""}, want: `["Hello"]`},
		{name: "absent states", fields: map[string]string{"Query": "Hello"}, want: `["Hello"]`},
		{name: "any with state", fields: map[string]string{"Query": "{{any}}", "States": "greeting"}, want: `[null,"greeting"]`},
		{name: "any without state", fields: map[string]string{"Query": "{{any}}"}, want: `[null]`},
		{name: "absent query", fields: map[string]string{"Response": "r"}, want: `[null]`},
		{name: "html kept", fields: map[string]string{"Query": "a<b>&c", "States": "s,t"}, want: `["a<b>&c","s,t"]`},
		{name: "quotes escaped", fields: map[string]string{"Query": `say "hi"`}, want: `["say \"hi\""]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewRecord(tc.fields).Key().Encode()
			if got != tc.want {
				t.Fatalf("Encode() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDecodeKeyRoundTrip(t *testing.T) {
	keys := []QueryKey{
		{Query: String("Hello")},
		{Query: nil},
		{Query: nil, States: String("greeting")},
		{Query: String("what's up?"), States: String("a,b")},
		{Query: String("ünïcödé <tag>")},
	}
	for _, key := range keys {
		encoded := key.Encode()
		decoded, err := DecodeKey(encoded)
		if err != nil {
			t.Fatalf("DecodeKey(%s): %v", encoded, err)
		}
		if decoded.Encode() != encoded {
			t.Fatalf("round trip mismatch: %s != %s", decoded.Encode(), encoded)
		}
		if (decoded.Query == nil) != (key.Query == nil) {
			t.Fatalf("query nil mismatch for %s", encoded)
		}
		if (decoded.States == nil) != (key.States == nil) {
			t.Fatalf("states nil mismatch for %s", encoded)
		}
	}
	for _, bad := range []string{`[]`, `["a","b","c"]`, `["a",null]`, `{}`, `nope`} {
		if _, err := DecodeKey(bad); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}
}

func TestBuildQueryMapLastWriteWins(t *testing.T) {
	records := []Record{
		NewRecord(map[string]string{"Query": "Hi", "Response": "first", "States": "s", "NewState": "a"}),
		NewRecord(map[string]string{"Query": "Bye", "Response": "bye"}),
		NewRecord(map[string]string{"Query": "Hi", "Response": "second", "States": "s", "NewState": "b"}),
		NewRecord(map[string]string{"Query": "Hi", "Response": "other state", "States": "t"}),
	}
	m := BuildQueryMap(records)
	if m.Len() != 3 {
		t.Fatalf("expected 3 keys, got %d", m.Len())
	}
	keys := m.Keys()
	want := []string{`["Hi","s"]`, `["Bye"]`, `["Hi","t"]`}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
	r, ok := m.Get(`["Hi","s"]`)
	if !ok {
		t.Fatalf("missing key")
	}
	if *r.Response != "second" || *r.NewState != "b" {
		t.Fatalf("expected later row, got %+v", r)
	}
}

func TestQueryMapRecordJSON(t *testing.T) {
	m := BuildQueryMap([]Record{
		NewRecord(map[string]string{"Query": "Hello", "Response": "Hi there", "States": "", "NewState": ""}),
		NewRecord(map[string]string{"Query": "{{any}}", "Response": "Default reply", "States": "greeting", "NewState": ""}),
		NewRecord(map[string]string{"Query": "short", "Response": "row"}),
	})
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"[\"Hello\"]":{"Query":"Hello","Response":"Hi there","States":"","NewState":""},` +
		`"[null,\"greeting\"]":{"Query":null,"Response":"Default reply","States":"greeting","NewState":""},` +
		`"[\"short\"]":{"Query":"short","Response":"row"}}`
	if string(data) != want {
		t.Fatalf("got  %s\nwant %s", data, want)
	}
}

func TestEmbeddableKeys(t *testing.T) {
	m := BuildQueryMap([]Record{
		NewRecord(map[string]string{"Query": "{{any}}", "States": "x"}),
		NewRecord(map[string]string{"Query": "a"}),
		NewRecord(map[string]string{"Query": "{{any}}"}),
		NewRecord(map[string]string{"Query": "b", "States": "x"}),
	})
	got := m.Embeddable()
	if len(got) != 2 || got[0] != `["a"]` || got[1] != `["b","x"]` {
		t.Fatalf("unexpected embeddable keys: %v", got)
	}
}

func TestModelEmptyShape(t *testing.T) {
	data, err := json.Marshal(&Model{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"queryMap":{},"embeddingMap":{}}` {
		t.Fatalf("unexpected empty model: %s", data)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected two members, got %d", len(top))
	}
}

func TestParseModel(t *testing.T) {
	qm := BuildQueryMap([]Record{
		NewRecord(map[string]string{"Query": "Hello", "Response": "Hi there", "States": "", "NewState": ""}),
		NewRecord(map[string]string{"Query": "{{any}}", "Response": "Default reply", "States": "greeting"}),
	})
	em := NewEmbeddingMap(qm.Keys())
	em.Set(`["Hello"]`, []float32{0.25, -1, 3.5})
	data, err := json.Marshal(&Model{QueryMap: qm, EmbeddingMap: em})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	model, err := ParseModel(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if model.QueryMap.Len() != 2 || model.EmbeddingMap.Len() != 1 {
		t.Fatalf("unexpected sizes: %d/%d", model.QueryMap.Len(), model.EmbeddingMap.Len())
	}
	vec, ok := model.EmbeddingMap.Get(`["Hello"]`)
	if !ok || len(vec) != 3 || vec[1] != -1 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if model.EmbeddingMap.Dimension() != 3 {
		t.Fatalf("dimension = %d", model.EmbeddingMap.Dimension())
	}
	r, _ := model.QueryMap.Get(`[null,"greeting"]`)
	if r.Query != nil || *r.States != "greeting" || r.NewState != nil {
		t.Fatalf("unexpected record: %+v", r)
	}
}
