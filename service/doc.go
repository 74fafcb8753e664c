// Package service drives bot model generation: it locates each bot dataset,
// builds the query map, computes embeddings and writes the model artifact.
//
// It is intended for embedding generation into other programs without
// shelling out to the CLI.
package service
