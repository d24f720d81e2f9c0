// Package buildd is the root of the buildd Go SDK: a client library for
// driving a buildd build-automation controller over HTTP.
//
// The SDK itself lives in pkt.systems/buildd/client; wire types are in
// pkt.systems/buildd/api. This package hosts StartTestServer, an in-process
// fake controller that backs the SDK's tests and is exported so downstream
// projects can test their own buildd integrations without a live controller.
package buildd
