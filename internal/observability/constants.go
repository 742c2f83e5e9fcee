package observability

const (
	// Span names, one per chain traversal kind plus the remote-hook call.
	SpanChainRequest        = "chain.request"
	SpanChainResponse       = "chain.response"
	SpanChainToolsList      = "chain.tools_list"
	SpanChainToolsListResp  = "chain.tools_list_response"
	SpanChainException      = "chain.exception"
	SpanRemoteHookCall      = "hook.remote_call"

	AttrSessionID  = "mcphook.session_id"
	AttrHookName   = "mcphook.hook_name"
	AttrOperation  = "mcphook.operation"
	AttrVerdict    = "mcphook.verdict"
	AttrToolName   = "mcphook.tool_name"

	// VerdictContinue, VerdictAbort and VerdictError are the label values
	// recorded against HookOutcomesTotal; VerdictError covers both a
	// transport-level call failure and an undecodable reply, since both
	// degrade the same way (§4.2: misbehaving hooks must never harm user
	// traffic).
	VerdictContinue = "continue"
	VerdictAbort    = "abort"
	VerdictError    = "error"

	DefaultServiceName = "mcphook-proxy"
)
