// Package cloudsync keeps the local library and its cloud copy in step.
//
// The cloud copy is a single document per user (path "users/<id>/library")
// held by a DocumentStore; s3store and pgstore provide the two backends.
// Every write carries this device's id so Watch can ignore its own echoes.
//
// Pushes are debounced: SchedulePush keeps only the latest payload and one
// timer, and a new call replaces both. Pull and Watch reconcile the remote
// snapshot with the local store through library.MergeLibraries. Sync errors
// never escape the debounced path; they are recorded in Status.
package cloudsync
