// Package backlog tracks documents queued for reprocessing and prunes
// them once done.
//
// Items live as individual JSON files under the backlog directory, one
// per item, freely rewritten as their status moves through pending,
// processing, failed and done. The pruner deletes only done items older
// than the retention window, on a cron schedule; it is the single
// deletion pathway in the repository and never reaches into the
// append-only audit tree.
package backlog
