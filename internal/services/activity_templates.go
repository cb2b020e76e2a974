package services

import (
	"fmt"

	"community-ledger/internal/models"
)

// AutoActivityDetails fills the templates of automatic activities
type AutoActivityDetails struct {
	ReferenceID *string
	Name        string // tournament, team, achievement or item name
	Level       int
	Amount      int64
}

type activityTemplate struct {
	title       func(d AutoActivityDetails) string
	description func(d AutoActivityDetails) string
}

var activityTemplates = map[models.ActivityType]activityTemplate{
	models.ActivityTournamentWin: {
		title:       func(d AutoActivityDetails) string { return "🏆 Victoire en tournoi" },
		description: func(d AutoActivityDetails) string { return fmt.Sprintf("A remporté le tournoi %s", d.Name) },
	},
	models.ActivityTournamentJoin: {
		title:       func(d AutoActivityDetails) string { return "🎮 Inscription à un tournoi" },
		description: func(d AutoActivityDetails) string { return fmt.Sprintf("S'est inscrit au tournoi %s", d.Name) },
	},
	models.ActivityTeamJoin: {
		title:       func(d AutoActivityDetails) string { return "👥 Nouvelle équipe" },
		description: func(d AutoActivityDetails) string { return fmt.Sprintf("A rejoint l'équipe %s", d.Name) },
	},
	models.ActivityTeamCreate: {
		title:       func(d AutoActivityDetails) string { return "🛡️ Équipe créée" },
		description: func(d AutoActivityDetails) string { return fmt.Sprintf("A fondé l'équipe %s", d.Name) },
	},
	models.ActivityLevelUp: {
		title:       func(d AutoActivityDetails) string { return fmt.Sprintf("⭐ Niveau %d atteint", d.Level) },
		description: func(d AutoActivityDetails) string { return fmt.Sprintf("Est passé au niveau %d", d.Level) },
	},
	models.ActivityAchievement: {
		title:       func(d AutoActivityDetails) string { return "🏅 Succès débloqué" },
		description: func(d AutoActivityDetails) string { return fmt.Sprintf("A débloqué le succès %s", d.Name) },
	},
	models.ActivityComment: {
		title:       func(d AutoActivityDetails) string { return "💬 Nouveau commentaire" },
		description: func(d AutoActivityDetails) string { return fmt.Sprintf("A commenté %s", d.Name) },
	},
	models.ActivityPurchase: {
		title: func(d AutoActivityDetails) string { return "🛒 Achat" },
		description: func(d AutoActivityDetails) string {
			return fmt.Sprintf("A acheté %s pour %d pièces", d.Name, d.Amount)
		},
	},
	models.ActivityBetWon: {
		title: func(d AutoActivityDetails) string { return "🎲 Pari gagné" },
		description: func(d AutoActivityDetails) string {
			return fmt.Sprintf("A gagné %d pièces sur %s", d.Amount, d.Name)
		},
	},
}

// renderActivity resolves the title and description for an automatic activity
func renderActivity(activityType models.ActivityType, d AutoActivityDetails) (string, string, error) {
	tpl, ok := activityTemplates[activityType]
	if !ok {
		return "", "", fmt.Errorf("%w: no template for activity type %q", ErrInvalidInput, activityType)
	}
	return tpl.title(d), tpl.description(d), nil
}
