package inventory

import (
	"strings"
)

// CheckState is the tri-valued checkbox state of a tree view node.
type CheckState string

const (
	Checked       CheckState = "checked"
	Unchecked     CheckState = "unchecked"
	Indeterminate CheckState = "indeterminate"
)

const (
	convertedRootID   = "converted-root"
	convertedRootName = "All datacenters"
)

// TreeViewItem is the display form of an inventory tree node.
type TreeViewItem struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Kind      TreeKind       `json:"kind,omitempty"`
	Icon      string         `json:"icon,omitempty"`
	AriaLabel string         `json:"ariaLabel"`
	Check     CheckState     `json:"checked"`
	Children  []TreeViewItem `json:"children,omitempty"`
}

// SelectedBySelfLink returns a predicate matching nodes whose self link equals
// that of any of the given nodes. Nodes without an object have no self link
// and only match themselves.
func SelectedBySelfLink(nodes []*Tree) func(*Tree) bool {
	links := make(map[string]struct{}, len(nodes))
	unlinked := make(map[*Tree]struct{})
	for _, n := range nodes {
		if link := n.SelfLink(); link != "" {
			links[link] = struct{}{}
		} else if n != nil {
			unlinked[n] = struct{}{}
		}
	}
	return func(node *Tree) bool {
		link := node.SelfLink()
		if link == "" {
			_, ok := unlinked[node]
			return ok
		}
		_, ok := links[link]
		return ok
	}
}

func subtreeMatchesSearch(node *Tree, searchText string) bool {
	if node.Kind == KindVM {
		return false
	}
	if searchText == "" || strings.Contains(strings.ToLower(node.Name()), strings.ToLower(searchText)) {
		return true
	}
	for _, child := range node.Children {
		if subtreeMatchesSearch(child, searchText) {
			return true
		}
	}
	return false
}

func someDescendantSelected(node *Tree, isSelected func(*Tree) bool) bool {
	if isSelected(node) {
		return true
	}
	for _, child := range node.Children {
		if someDescendantSelected(child, isSelected) {
			return true
		}
	}
	return false
}

func iconFor(kind TreeKind) string {
	switch kind {
	case KindCluster:
		return "cluster"
	case KindHost:
		return "host"
	case KindFolder:
		return "folder"
	}
	return ""
}

func convertNode(node *Tree, searchText string, isSelected func(*Tree) bool) TreeViewItem {
	check := Unchecked
	switch {
	case isSelected(node):
		check = Checked
	case someDescendantSelected(node, isSelected):
		check = Indeterminate
	}
	return TreeViewItem{
		ID:        node.SelfLink(),
		Name:      node.Name(),
		Kind:      node.Kind,
		Icon:      iconFor(node.Kind),
		AriaLabel: "Select " + string(node.Kind) + " " + node.Name(),
		Check:     check,
		Children:  convertChildren(node.Children, searchText, isSelected),
	}
}

func convertChildren(children []*Tree, searchText string, isSelected func(*Tree) bool) []TreeViewItem {
	var items []TreeViewItem
	for _, child := range children {
		if subtreeMatchesSearch(child, searchText) {
			items = append(items, convertNode(child, searchText, isSelected))
		}
	}
	return items
}

// FilterAndConvertTree converts an inventory tree into its display form under a
// synthetic "All datacenters" root, keeping only non-VM nodes whose name
// contains searchText (case-insensitively) or that have a matching descendant.
func FilterAndConvertTree(root *Tree, searchText string, isSelected func(*Tree) bool, allSelected bool) []TreeViewItem {
	if root == nil {
		return []TreeViewItem{}
	}
	check := Unchecked
	switch {
	case allSelected:
		check = Checked
	case someDescendantSelected(root, isSelected):
		check = Indeterminate
	}
	return []TreeViewItem{{
		ID:        convertedRootID,
		Name:      convertedRootName,
		AriaLabel: "Select all datacenters",
		Check:     check,
		Children:  convertChildren(root.Children, searchText, isSelected),
	}}
}

// FlattenTreeNodes returns every non-VM descendant of root, excluding root
// itself. The children of a node precede the flattened subtrees of those children.
func FlattenTreeNodes(root *Tree) []*Tree {
	if root == nil || len(root.Children) == 0 {
		return nil
	}
	var children []*Tree
	for _, child := range root.Children {
		if child.Kind != KindVM {
			children = append(children, child)
		}
	}
	result := append([]*Tree{}, children...)
	for _, child := range children {
		result = append(result, FlattenTreeNodes(child)...)
	}
	return result
}

// AllVMChildren returns the union of the direct VM children of nodes,
// deduplicated by node identity in first-seen order.
func AllVMChildren(nodes []*Tree) []*Tree {
	seen := make(map[*Tree]struct{})
	var vms []*Tree
	for _, node := range nodes {
		for _, child := range node.Children {
			if child.Kind != KindVM {
				continue
			}
			if _, ok := seen[child]; ok {
				continue
			}
			seen[child] = struct{}{}
			vms = append(vms, child)
		}
	}
	return vms
}

// AvailableVMs returns the VMs from allVMs that are direct VM children of the
// selected tree nodes.
func AvailableVMs(selectedNodes []*Tree, allVMs []VM) []VM {
	links := make(map[string]struct{})
	for _, node := range AllVMChildren(selectedNodes) {
		if node.Object != nil {
			links[node.Object.SelfLink] = struct{}{}
		}
	}
	result := []VM{}
	for _, vm := range allVMs {
		if _, ok := links[vm.SelfLink]; ok {
			result = append(result, vm)
		}
	}
	return result
}

// FindVMTreePath returns the nodes from root down to the node with the given
// self link, both inclusive, or nil if it is not in the tree.
func FindVMTreePath(node *Tree, selfLink string) []*Tree {
	if node == nil {
		return nil
	}
	if node.Object != nil && node.Object.SelfLink == selfLink {
		return []*Tree{node}
	}
	for _, child := range node.Children {
		if childPath := FindVMTreePath(child, selfLink); childPath != nil {
			return append([]*Tree{node}, childPath...)
		}
	}
	return nil
}

// TreePathInfo is the location of a VM in both inventory hierarchies.
type TreePathInfo struct {
	Datacenter *CommonObject   `json:"datacenter"`
	Cluster    *CommonObject   `json:"cluster"`
	Host       *CommonObject   `json:"host"`
	Folders    []*CommonObject `json:"folders"`
	FolderPath string          `json:"folderPath,omitempty"`
}

func firstOfKind(path []*Tree, kind TreeKind) *CommonObject {
	for _, node := range path {
		if node.Kind == kind {
			return node.Object
		}
	}
	return nil
}

// FindVMTreePathInfo derives the datacenter, cluster and host of a VM from the
// host tree and its folder chain from the VM tree. Both trees are needed since
// the two lineages are disjoint.
func FindVMTreePathInfo(vm VM, hostTree, vmTree *Tree) TreePathInfo {
	if hostTree == nil || vmTree == nil {
		return TreePathInfo{}
	}
	hostPath := FindVMTreePath(hostTree, vm.SelfLink)
	vmPath := FindVMTreePath(vmTree, vm.SelfLink)

	info := TreePathInfo{
		Datacenter: firstOfKind(hostPath, KindDatacenter),
		Cluster:    firstOfKind(hostPath, KindCluster),
		Host:       firstOfKind(hostPath, KindHost),
	}
	if vmPath == nil {
		return info
	}
	info.Folders = []*CommonObject{}
	var names []string
	for _, node := range vmPath {
		if node.Kind == KindFolder && node.Object != nil {
			info.Folders = append(info.Folders, node.Object)
			names = append(names, node.Object.Name)
		}
	}
	info.FolderPath = strings.Join(names, "/")
	return info
}

// TreePathInfoByVM computes FindVMTreePathInfo for every VM, keyed by self link.
func TreePathInfoByVM(vms []VM, hostTree, vmTree *Tree) map[string]TreePathInfo {
	result := make(map[string]TreePathInfo, len(vms))
	for _, vm := range vms {
		result[vm.SelfLink] = FindVMTreePathInfo(vm, hostTree, vmTree)
	}
	return result
}

// FindMatchingNodeAndDescendants finds the lowest non-VM ancestor of the VM
// with the given self link and returns it along with all of its non-VM
// descendants.
func FindMatchingNodeAndDescendants(tree *Tree, vmSelfLink string) []*Tree {
	path := FindVMTreePath(tree, vmSelfLink)
	var match *Tree
	for i := len(path) - 1; i >= 0; i-- {
		if path[i].Kind != KindVM {
			match = path[i]
			break
		}
	}
	if match == nil {
		return nil
	}
	var nodes []*Tree
	var push func(n *Tree)
	push = func(n *Tree) {
		nodes = append(nodes, n)
		for _, child := range n.Children {
			if child.Kind != KindVM {
				push(child)
			}
		}
	}
	push(match)
	return nodes
}

// FindNodesMatchingSelectedVMs reconstructs the tree nodes a user would have
// checked to arrive at the given VM selection.
func FindNodesMatchingSelectedVMs(tree *Tree, selectedVMs []VM) []*Tree {
	seen := make(map[*Tree]struct{})
	nodes := []*Tree{}
	for _, vm := range selectedVMs {
		for _, node := range FindMatchingNodeAndDescendants(tree, vm.SelfLink) {
			if _, ok := seen[node]; ok {
				continue
			}
			seen[node] = struct{}{}
			nodes = append(nodes, node)
		}
	}
	return nodes
}
