// Package engine implements the ArciDispatch traversal described in the
// accompanying design notes: a modified Dijkstra's algorithm over a
// dispatcher.Dispatcher that produces a workflow graph of the edges that
// fired and a map of estimated data outputs.
//
// Dispatch is not safe to call twice concurrently against the same
// *dispatcher.Dispatcher; each call only reads the dispatcher's static
// graph, so concurrent calls against independent dispatcher.Clone()s are
// fine.
package engine
