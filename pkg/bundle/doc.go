// Package bundle persists version bundles: one immutable reproducibility
// snapshot per pipeline run, capturing code revision, model identity, and
// prompt/spec hashes at run start. Decisions reference bundles by id;
// bundles are the answer to "could we reproduce this decision today".
package bundle
