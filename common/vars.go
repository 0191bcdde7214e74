package common

// Version is overridden at build time with -ldflags "-X ...common.Version=...".
var Version = "dev"

// PackageName prefixes metric names exported by this module.
const PackageName = "confidential_trials"
