// Package cask is a lazily materialized object/property graph over
// hierarchical, time-sampled scene archives.
//
// One tree serves both directions. An Archive opened from disk wraps native
// read handles and only populates children, properties and sample values the
// first time they are navigated. An Archive built in memory starts with a
// bare Top and grows through DeepDict assignment. WriteToFile walks the tree
// parent before child, creating native write handles and flushing values,
// whether the nodes came from disk, from the caller, or both.
//
//	a, err := cask.Open("in.abc")
//	if err != nil {
//		return err
//	}
//	kids, _ := a.Top().Children()
//	mesh, _ := kids.Get("root/body/bodyShape")
//	p, _ := mesh.Property(".geom/P")
//	pts, _ := p.GetValue(cask.Frame(1001))
//	...
//	err = a.WriteToFile("out.abc")
package cask
