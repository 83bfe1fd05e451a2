// Package models contains the records exchanged with clients and stored on
// disk, together with their wire serialization.
//
// Every record serializes to a run of wrapped values (see package wire) in a
// fixed field order. Deserializers reject short or trailing data.
package models
