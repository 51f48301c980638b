package queryserver

// Command tags recognized on the view-server line protocol.
const (
	cmdReset    = "reset"
	cmdAddLib   = "add_lib"
	cmdAddFun   = "add_fun"
	cmdMapDoc   = "map_doc"
	cmdReduce   = "reduce"
	cmdRereduce = "rereduce"
	cmdDdoc     = "ddoc"
)

// errorResponse builds the three-element ["error", reason, message] wire
// shape used for every error surfaced to the host.
func errorResponse(reason, message string) []any {
	return []any{"error", reason, message}
}

// logResponse builds the ["log", message] wire shape used for diagnostic
// output interleaved on stdout.
func logResponse(message string) []any {
	return []any{"log", message}
}
