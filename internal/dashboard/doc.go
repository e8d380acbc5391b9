// Package dashboard collects operation timings and combines them with cache
// and task statistics into the performance views served by the API.
//
// A Recorder keeps the most recent durations per operation and an error count
// per operation. It is fed by the skills extractor and by task lifecycle
// events. An Aggregator reads the Recorder together with the cache store and
// the task runner, and a Janitor periodically sweeps expired cache entries
// and old task records.
package dashboard
