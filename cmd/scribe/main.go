// Scribe is the compliance ledger for an insurance-claim document
// pipeline.
//
// It keeps a tamper-evident record of every decision the pipeline makes
// about a claim document, an audit log of every LLM call behind those
// decisions, reproducibility bundles for each pipeline run, and
// versioned histories for ground truth, labels and configuration.
//
// Usage:
//
//	# Start the compliance API server with default configuration
//	scribe run
//
//	# Start with custom configuration file
//	scribe run --config /etc/scribe/config.yaml
//
//	# Verify the hash chains
//	scribe verify
//
//	# Query decision records
//	scribe query decisions --claim-id claim-042
//
//	# Inspect a run's version bundle
//	scribe bundle show run-20260830-01
//
//	# Walk a key's versioned history
//	scribe history truth claim-042
//
//	# Show version information
//	scribe version
package main

func main() {
	Execute()
}
