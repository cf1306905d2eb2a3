// Package component turns render functions into vdom.Component values.
//
// A Definition pairs a name with a function of typed props. Each call to New
// or Keyed yields a Node that the layout mounts, keeps hook state for, and
// re-renders when that state changes. The key is not part of the props;
// props that declare a Key field are rejected.
package component
