// Package protocol defines the messages exchanged between a layout and its
// client and their JSON encoding.
//
// Outbound, the layout sends layout-update messages. The first carries the
// full tree in Root; later ones carry either a full tree or an ordered list
// of JSON Patch operations against the client's copy of the tree:
//
//	{"type":"layout-update","seq":3,"changes":[
//	    {"op":"replace","path":"/children/0/children/0","value":"3","kind":"set-text"}]}
//
// Inbound, the client sends layout-event messages naming the target id of
// the handler and the event payload:
//
//	{"type":"layout-event","target":"n2:onclick","data":{"value":"x"}}
//
// Messages that fail to decode are answered with an error message and do not
// end the session.
package protocol
