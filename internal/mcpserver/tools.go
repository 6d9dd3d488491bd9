package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Sentinel MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolAnalyzeTransaction = mcp.NewTool("analyze_transaction",
	mcp.WithDescription(
		"Score a financial transaction for threats using the Sentinel consensus engine. "+
			"Four scorers (risk, privacy compliance, treasury impact, adaptive guardian) "+
			"evaluate the event and the consensus maps to an action: allow, monitor, alert, or block."),
	mcp.WithNumber("amount",
		mcp.Required(),
		mcp.Description("Transaction amount in USD")),
	mcp.WithNumber("execution_time_seconds",
		mcp.Description("Seconds the transaction took to execute. Sub-minute execution is a flash-loan signal.")),
	mcp.WithNumber("contract_interactions",
		mcp.Description("Number of smart contracts the transaction touches")),
	mcp.WithNumber("sender_score",
		mcp.Description("Sender reputation 0-100 (default 50)")),
	mcp.WithBoolean("has_personal_data",
		mcp.Description("Whether the transaction carries personal data")),
	mcp.WithString("jurisdiction",
		mcp.Description("Jurisdiction code (e.g. 'EU', 'US')")),
	mcp.WithBoolean("consent_given",
		mcp.Description("Whether data-processing consent was given (default true)")),
	mcp.WithNumber("treasury_size",
		mcp.Description("Treasury size in USD for impact scoring (default 1,000,000)")),
)

var ToolRecordOutcome = mcp.NewTool("record_outcome",
	mcp.WithDescription(
		"Report ground truth for a previous Sentinel decision. "+
			"Marks the transaction as an actual threat or actually safe, "+
			"updating per-scorer accuracy counters."),
	mcp.WithNumber("decision_id",
		mcp.Required(),
		mcp.Description("The decisionId from a previous analyze_transaction result")),
	mcp.WithString("outcome",
		mcp.Required(),
		mcp.Description("Ground truth: 'threat' or 'safe'"),
		mcp.Enum("threat", "safe")),
)

var ToolGetEngineMetrics = mcp.NewTool("get_engine_metrics",
	mcp.WithDescription(
		"Get Sentinel's lifetime counters: total analyses, threats flagged, "+
			"per-scorer accuracy percentages, and pattern memory size."),
)

var ToolListRecentDecisions = mcp.NewTool("list_recent_decisions",
	mcp.WithDescription(
		"List recent consensus decisions from the audit store, newest first. "+
			"Shows action, consensus score, and fingerprint for each."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of decisions to return (default 20)")),
)
