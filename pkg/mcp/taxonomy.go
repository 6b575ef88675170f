package mcp

// Channel names one entry of the closed method taxonomy. Every channel
// carries a fixed method string (empty for the catch-all channels), the
// direction it applies to, and the three hook-method names a Hook may
// implement for it.
type Channel string

// The closed set of channels. "Other" and "Target" are catch-alls for
// methods outside the enumerated set, keyed by direction; the two
// notification channels cover both directions' one-sided traffic.
const (
	ChannelToolsCall              Channel = "tools/call"
	ChannelToolsList              Channel = "tools/list"
	ChannelPromptsList            Channel = "prompts/list"
	ChannelResourcesList          Channel = "resources/list"
	ChannelResourcesTemplatesList Channel = "resources/templates/list"
	ChannelResourcesRead          Channel = "resources/read"
	ChannelInitialize             Channel = "initialize"
	ChannelOther                  Channel = "other"  // catch-all, source->target requests
	ChannelTarget                 Channel = "target" // catch-all, target->source requests
	ChannelNotificationToServer   Channel = "notification/client-to-server"
	ChannelNotificationToClient   Channel = "notification/server-to-client"
	ChannelPing                   Channel = "ping"
)

// HookMethods names the three handler methods a Hook may implement for a
// given channel: the request-phase handler, the response-phase (success)
// handler, and the error-phase handler. Any of the three may be empty for
// channels that do not support it (e.g. notifications have no result/error
// handler; only request-bearing channels get an error handler at all).
type HookMethods struct {
	Request string
	Result  string
	Error   string
}

// TaxonomyEntry is one row of the closed Message Taxonomy: the channel's
// wire method, the hook methods it dispatches to, and whether the channel
// admits an async continuation (only request-bearing, non-notification
// channels do).
type TaxonomyEntry struct {
	Channel      Channel
	Method       string // wire method string; "" for catch-all/notification channels
	Methods      HookMethods
	Notification bool // true: no response/error phase, no continueAsync
}

var taxonomyByMethod = map[string]TaxonomyEntry{
	"tools/call": {
		Channel: ChannelToolsCall, Method: "tools/call",
		Methods: HookMethods{Request: "OnToolsCallRequest", Result: "OnToolsCallResult", Error: "OnToolsCallError"},
	},
	"tools/list": {
		Channel: ChannelToolsList, Method: "tools/list",
		Methods: HookMethods{Request: "OnToolsListRequest", Result: "OnToolsListResult", Error: "OnToolsListError"},
	},
	"prompts/list": {
		Channel: ChannelPromptsList, Method: "prompts/list",
		Methods: HookMethods{Request: "OnPromptsListRequest", Result: "OnPromptsListResult", Error: "OnPromptsListError"},
	},
	"resources/list": {
		Channel: ChannelResourcesList, Method: "resources/list",
		Methods: HookMethods{Request: "OnResourcesListRequest", Result: "OnResourcesListResult", Error: "OnResourcesListError"},
	},
	"resources/templates/list": {
		Channel: ChannelResourcesTemplatesList, Method: "resources/templates/list",
		Methods: HookMethods{Request: "OnResourcesTemplatesListRequest", Result: "OnResourcesTemplatesListResult", Error: "OnResourcesTemplatesListError"},
	},
	"resources/read": {
		Channel: ChannelResourcesRead, Method: "resources/read",
		Methods: HookMethods{Request: "OnResourcesReadRequest", Result: "OnResourcesReadResult", Error: "OnResourcesReadError"},
	},
	"initialize": {
		Channel: ChannelInitialize, Method: "initialize",
		Methods: HookMethods{Request: "OnInitializeRequest", Result: "OnInitializeResult", Error: "OnInitializeError"},
	},
}

var otherEntry = TaxonomyEntry{
	Channel: ChannelOther,
	Methods: HookMethods{Request: "OnOtherRequest", Result: "OnOtherResult", Error: "OnOtherError"},
}

var targetEntry = TaxonomyEntry{
	Channel: ChannelTarget,
	Methods: HookMethods{Request: "OnTargetRequest", Result: "OnTargetResult", Error: "OnTargetError"},
}

var notificationToServerEntry = TaxonomyEntry{
	Channel: ChannelNotificationToServer, Notification: true,
	Methods: HookMethods{Request: "OnClientNotification"},
}

var notificationToClientEntry = TaxonomyEntry{
	Channel: ChannelNotificationToClient, Notification: true,
	Methods: HookMethods{Request: "OnServerNotification"},
}

// Lookup is the Message Taxonomy's single entry point: given a method string
// and a direction, it returns the TaxonomyEntry naming the hook methods to
// invoke. The lookup is total over the closed set — an unrecognized method
// always resolves to the "other" (source->target) or "target" (target->source)
// catch-all, keyed by direction.
func Lookup(method string, direction Direction) TaxonomyEntry {
	if entry, ok := taxonomyByMethod[method]; ok {
		return entry
	}
	if direction == ClientToServer {
		return otherEntry
	}
	return targetEntry
}

// LookupNotification returns the taxonomy entry for a one-sided
// notification travelling in the given direction.
func LookupNotification(direction Direction) TaxonomyEntry {
	if direction == ClientToServer {
		return notificationToServerEntry
	}
	return notificationToClientEntry
}

// AllHookMethodNames returns every hook method name appearing anywhere in
// the taxonomy, deduplicated. The Hook Chain uses this to probe a hook's
// full capability set exactly once at build time, regardless of which
// channels a given message later resolves to.
func AllHookMethodNames() []string {
	seen := make(map[string]struct{})
	add := func(methods HookMethods) {
		for _, m := range []string{methods.Request, methods.Result, methods.Error} {
			if m != "" {
				seen[m] = struct{}{}
			}
		}
	}
	for _, entry := range taxonomyByMethod {
		add(entry.Methods)
	}
	add(otherEntry.Methods)
	add(targetEntry.Methods)
	add(notificationToServerEntry.Methods)
	add(notificationToClientEntry.Methods)

	names := make([]string, 0, len(seen))
	for m := range seen {
		names = append(names, m)
	}
	return names
}

// RequestDirection returns the chain-traversal direction to use for the
// request phase of a message arriving from the given wire direction.
// Source->target requests traverse head->tail ("forward"); target->source
// requests (server-initiated, e.g. sampling) traverse tail->head, for
// symmetry with how their responses unwind.
func RequestDirection(wireDirection Direction) Direction {
	return wireDirection
}
