// Package dialog defines the dialog dataset records, their query keys and
// the serialized bot model ({queryMap, embeddingMap}) consumed by clients.
//
// A query key is a JSON array [query] or [query, states] where query is
// null for responses that match any query. Keys are used verbatim as JSON
// object member names in both maps.
package dialog
