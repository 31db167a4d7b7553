// Package seed bootstraps the plan catalog and drip campaign templates so a
// fresh install is usable without manual inserts.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	emaildomain "github.com/funnelbase/funnelbase/internal/email/domain"
	plandomain "github.com/funnelbase/funnelbase/internal/plan/domain"
)

type planSeed struct {
	ID           string
	Name         string
	Amount       float64
	BillingCycle plandomain.BillingCycle
}

var defaultPlans = []planSeed{
	{ID: "starter-monthly", Name: "Starter", Amount: 97.00, BillingCycle: plandomain.BillingCycleMonthly},
	{ID: "pro-monthly", Name: "Pro", Amount: 297.00, BillingCycle: plandomain.BillingCycleMonthly},
	{ID: "pro-yearly", Name: "Pro Anual", Amount: 2970.00, BillingCycle: plandomain.BillingCycleYearly},
	{ID: "lifetime", Name: "Vitalício", Amount: 4997.00, BillingCycle: plandomain.BillingCycleLifetime},
}

// EnsureDefaultPlans inserts the default catalog, leaving existing rows as
// they are.
func EnsureDefaultPlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range defaultPlans {
			err := tx.Exec(`
				INSERT INTO subscription_plans
					(id, name, amount, currency, billing_cycle, active, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO NOTHING`,
				p.ID, p.Name, p.Amount, "BRL", p.BillingCycle, true, now, now,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type templateSeed struct {
	Name       string
	Subject    string
	Body       string
	DelayHours int
}

var campaignTemplates = map[string][]templateSeed{
	emaildomain.TierHot: {
		{"welcome", "Bem-vindo! Seu acesso está a um passo", "<p>Você está quase lá. Finalize sua compra hoje.</p>", 0},
		{"social-proof", "Veja o que nossos clientes dizem", "<p>Resultados reais de quem já entrou.</p>", 24},
		{"last-call", "Última chance: oferta expira hoje", "<p>Sua condição especial termina em algumas horas.</p>", 48},
	},
	emaildomain.TierWarm: {
		{"welcome", "Bem-vindo! Aqui está seu material", "<p>Conteúdo para você avaliar com calma.</p>", 0},
		{"case-study", "Como a Ana triplicou os leads", "<p>Um estudo de caso completo.</p>", 48},
		{"objections", "As 3 dúvidas mais comuns, respondidas", "<p>Respostas diretas antes de você decidir.</p>", 96},
		{"offer", "Uma condição especial para você", "<p>Desconto exclusivo para assinar agora.</p>", 144},
	},
	emaildomain.TierCold: {
		{"welcome", "Seu guia gratuito chegou", "<p>Material introdutório para começar.</p>", 0},
		{"education-1", "O erro nº 1 em captação de leads", "<p>E como evitá-lo.</p>", 72},
		{"education-2", "Checklist: sua página converte?", "<p>Passe sua landing page por este checklist.</p>", 168},
		{"nurture", "Por onde começar, na prática", "<p>Um plano simples de primeiros passos.</p>", 336},
		{"soft-offer", "Quando fizer sentido, estamos aqui", "<p>Conheça os planos sem compromisso.</p>", 504},
	},
}

// EnsureCampaignTemplates inserts the hot/warm/cold drip templates.
func EnsureCampaignTemplates(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for campaign, steps := range campaignTemplates {
			for order, step := range steps {
				err := tx.Exec(`
					INSERT INTO email_templates
						(id, campaign, template_name, subject, html_body, delay_hours, step_order)
					VALUES (?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (campaign, template_name) DO NOTHING`,
					node.Generate(), campaign, step.Name, step.Subject, step.Body, step.DelayHours, order+1,
				).Error
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}
