// Package hosttests contains the host-specific contract tests.
//
// Tests in this package use other packages as follows:
//
// data: route tables and fixture pages, loaded from data files
//
// harness: fixture servers, callback endpoints, and the host test service client
//
// ldtest: the basic test scope framework
//
// mockhost: the services that receive host events and custom scheme requests
//
// servicedef: types used in communication with a host test service
package hosttests
