// Package server provides the read-only compliance HTTP API.
//
// The API exposes everything an auditor needs without any write path:
// decision records, LLM call records, version bundles, versioned-store
// histories, and on-demand chain verification. Writes happen only
// in-process through the pipeline itself; there is deliberately no HTTP
// route that can append, mutate, or delete.
//
// Routes:
//
//	GET /healthz
//	GET /metrics
//	GET /v1/integrity
//	GET /v1/decisions?decision_type=&claim_id=&doc_id=&since=&limit=
//	GET /v1/llm-calls?call_id=&claim_id=&doc_id=&purpose=&since=&limit=
//	GET /v1/bundles
//	GET /v1/bundles/{run_id}
//	GET /v1/history/{store}/{key}
//	GET /v1/history/{store}/{key}/latest
//	GET /v1/history/{store}/{key}/{version}
package server
