// Package lifecycle decides how a device's keys are reconciled with the
// directory.
//
// Everything here is pure: Classify maps an Observation to one of four
// states and each state has its own transition function returning the
// action to perform and the state reached once it succeeds. The keys
// service performs the I/O.
//
//	state     local private  directory          action    next
//	synced    yes            matches local      none      synced
//	drifted   yes            missing/different  publish   synced
//	orphaned  no             present            adopt     orphaned
//	fresh     no             missing            generate  synced
//
// Orphaned never generates: a private key matching the directory may still
// exist on another device.
package lifecycle
