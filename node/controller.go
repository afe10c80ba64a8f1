package node

// ControllerKey is the routing descriptor key read by the dispatcher.
const ControllerKey = "_controller"

const DefaultAction = "index"

// Controller is the routing target of a node, e.g.
// {"_controller": "NewsModule:News:index"}.
type Controller map[string]string

// Target returns the "{module}Module:{controller}:{action}" descriptor.
func (c Controller) Target() string {
	return c[ControllerKey]
}

// SetController overwrites the routing target. An empty controller makes the
// next Controller call derive it again.
func (n *Node) SetController(c Controller) *Node {
	n.controller = c
	n.controllerLoaded = len(c) > 0
	return n
}

// Controller returns the routing target for the node's module and the index
// action.
func (n *Node) Controller() Controller {
	return n.ControllerFor("", "")
}

// ControllerFor derives the routing target on first use. controllerName
// defaults to the module, actionName to "index". Once derived, later calls
// return the same value whatever the arguments or the current module.
func (n *Node) ControllerFor(controllerName, actionName string) Controller {
	if n.controllerLoaded {
		return n.controller
	}
	if controllerName == "" {
		controllerName = n.module
	}
	if actionName == "" {
		actionName = DefaultAction
	}
	n.controller = Controller{
		ControllerKey: n.module + "Module:" + controllerName + ":" + actionName,
	}
	n.controllerLoaded = true
	return n.controller
}
