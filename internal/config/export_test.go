package config

// ResetCache drops cached configs so tests can reload with a different environment.
var ResetCache = resetCache
