package service

import (
	"fmt"

	"go-mod-console/internal/model"
)

// catalogEntry is the fixed template an OperationDefinition is rendered from.
// Labels and descriptions are parameterized by the selected count of the
// entry's variant.
type catalogEntry struct {
	kind                 model.OperationKind
	verb                 string
	noun                 string
	description          string
	requiresConfirmation bool
	destructive          bool
}

// Destructive operations demand an auditable justification; sensitive but
// reversible ones ask for an optional reason; the rest execute immediately.
var catalogByVariant = map[model.RecordKind][]catalogEntry{
	model.RecordKindAccount: {
		{kind: model.OperationSuspendAccounts, verb: "Suspend", noun: "account",
			description: "Suspend %d %s and revoke active sessions", requiresConfirmation: true, destructive: true},
		{kind: model.OperationVerifyAccounts, verb: "Verify", noun: "account",
			description: "Mark %d %s as identity-verified", requiresConfirmation: true},
		{kind: model.OperationActivateAccounts, verb: "Activate", noun: "account",
			description: "Reactivate %d suspended %s"},
	},
	model.RecordKindMedia: {
		{kind: model.OperationApproveMedia, verb: "Approve", noun: "video",
			description: "Publish %d pending %s"},
		{kind: model.OperationRejectMedia, verb: "Reject", noun: "video",
			description: "Reject and hide %d %s", requiresConfirmation: true, destructive: true},
		{kind: model.OperationFlagMedia, verb: "Flag", noun: "video",
			description: "Queue %d %s for manual review", requiresConfirmation: true},
	},
	model.RecordKindEvent: {
		{kind: model.OperationActivateEvents, verb: "Activate", noun: "event",
			description: "Make %d %s visible to players"},
		{kind: model.OperationDeactivateEvents, verb: "Deactivate", noun: "event",
			description: "Take %d %s off the schedule", requiresConfirmation: true, destructive: true},
	},
}

// AvailableOperations computes the catalog legal for the given selection:
// the fixed definition list of every variant present, counts substituted,
// concatenated in the fixed variant order. An empty selection yields an empty
// catalog. Pure: two selections with the same variant composition produce
// catalogs with identical kinds in identical order.
func AvailableOperations(selection []model.SelectableRecord) []model.OperationDefinition {
	counts := map[model.RecordKind]int{}
	for _, record := range selection {
		counts[record.Kind]++
	}

	definitions := make([]model.OperationDefinition, 0, len(selection))
	for _, variant := range model.VariantOrder {
		count := counts[variant]
		if count == 0 {
			continue
		}

		for _, entry := range catalogByVariant[variant] {
			definitions = append(definitions, entry.render(variant, count))
		}
	}

	return definitions
}

// DefinitionFor resolves one catalog entry against the current selection.
// The second return is false when the operation is not offered for this
// selection composition (unknown kind or no records of its variant).
func DefinitionFor(kind model.OperationKind, selection []model.SelectableRecord) (model.OperationDefinition, bool) {
	for _, definition := range AvailableOperations(selection) {
		if definition.Kind == kind {
			return definition, true
		}
	}
	return model.OperationDefinition{}, false
}

func (e catalogEntry) render(variant model.RecordKind, count int) model.OperationDefinition {
	return model.OperationDefinition{
		Kind:                 e.kind,
		Variant:              variant,
		Label:                fmt.Sprintf("%s %d %s", e.verb, count, pluralize(e.noun, count)),
		Description:          fmt.Sprintf(e.description, count, pluralize(e.noun, count)),
		RequiresConfirmation: e.requiresConfirmation,
		Destructive:          e.destructive,
	}
}

func pluralize(noun string, count int) string {
	if count == 1 {
		return noun
	}
	return noun + "s"
}
