// Package internaldefs maps the authengine counters onto exported metric
// families.
//
// Related engine counters share one family and are told apart by labels
// (outcome, factor, transition), so dashboards can sum or split them
// without knowing every counter name. Exporters read these tables instead of
// hard-coding names.
package internaldefs
