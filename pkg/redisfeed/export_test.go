package redisfeed

// AfterSnapshot exposes afterSnapshot to the external test package.
var AfterSnapshot = afterSnapshot
