// Package domain defines the data contracts shared by the queue worker and the
// batch classification engine: jobs, per-image and per-batch results, status
// messages, and the job error taxonomy.
//
// The types here carry no behaviour beyond validation, wire parsing, and pure
// aggregation, so they can be passed by value between concurrent message
// attempts without coordination.
package domain
