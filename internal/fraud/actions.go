package fraud

import "github.com/banking/risk-analytics/internal/domain"

var baseActions = []string{"review_transaction_details", "verify_entity_identity"}

var typeActions = map[domain.FraudType][]string{
	domain.FraudUnusualTransaction: {"compare_with_business_profile"},
	domain.FraudPayment:            {"contact_entity_to_confirm_activity", "apply_temporary_velocity_limit"},
	domain.FraudAccountTakeover:    {"verify_account_access", "confirm_location_with_entity"},
	domain.FraudMoneyLaundering:    {"file_suspicious_activity_report", "review_counterparty_relationships"},
	domain.FraudIdentity:           {"request_identity_documents"},
	domain.FraudDocument:           {"verify_documents_with_issuer"},
	domain.FraudCollusion:          {"review_related_party_links"},
	domain.FraudFakeBusiness:       {"conduct_site_visit"},
}

// recommendedActions returns base + type-specific + severity-specific actions
func recommendedActions(fraudType domain.FraudType, severity domain.AlertSeverity) []string {
	actions := make([]string, 0, len(baseActions)+3)
	actions = append(actions, baseActions...)
	actions = append(actions, typeActions[fraudType]...)

	switch severity {
	case domain.SeverityCritical:
		actions = append(actions, "escalate_immediately")
	case domain.SeverityHigh:
		actions = append(actions, "priority_handling")
	}
	return actions
}
