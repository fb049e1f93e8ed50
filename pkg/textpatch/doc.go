// Package textpatch applies ordered find-and-replace and find-and-insert steps to text buffers.
//
// A Pipeline threads one buffer through its steps in declaration order: every step sees the
// output of the steps before it. Steps locate regions with literal anchors, regular
// expressions, or depth-tracked delimiter blocks, and either replace them or splice new text
// next to them. Misses are no-ops unless the pipeline runs in strict mode. The package also
// exposes helpers to run pipelines against in-memory documents or the local filesystem.
package textpatch
