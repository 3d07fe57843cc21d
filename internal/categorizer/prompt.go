package categorizer

import (
	"fmt"
	"strings"

	"fjacquet/csv-ingest/internal/currencyutils"
	"fjacquet/csv-ingest/internal/dateutils"
	"fjacquet/csv-ingest/internal/models"
)

// examplesPerCategory is how many sample descriptions each category
// contributes to the prompt.
const examplesPerCategory = 2

// maxTrainingInPrompt caps the learned examples quoted in one prompt.
const maxTrainingInPrompt = 10

const obviousEstablishments = `ESTABELECIMENTOS ÓBVIOS (alta confiança 0.9+):
- AUTO POSTO, POSTO, SHELL, PETROBRAS, IPIRANGA = Transporte
- CARREFOUR, EXTRA, WALMART, ATACADÃO, MERCADO, SUPERMERCADO = Alimentação
- FARMACODE, DROGASIL, PACHECO, FARMÁCIA, DROGARIA = Saúde
- SUSHI BAR, RESTAURANTE, LANCHONETE, PIZZARIA = Alimentação
- CINEMA, CINEMARK, NETFLIX, SPOTIFY = Lazer
- UBER, 99, TAXI = Transporte
- ZARA, C&A, RIACHUELO = Vestuário`

const replyInstructions = `Responda SEMPRE no formato JSON:
{
    "category_name": "nome_da_categoria",
    "confidence": 0.95,
    "reasoning": "explicação_breve"
}

Regras:
- Para estabelecimentos óbvios, use confidence 0.9 ou maior
- confidence deve ser um número entre 0.0 e 1.0
- Se não tiver certeza (confidence < 0.7), use "Outros"
- Seja preciso e considere o contexto brasileiro
- Analise tanto a descrição quanto o estabelecimento
- Priorize o nome do estabelecimento sobre a descrição da transação`

// SystemPrompt describes the task and the available categories.
func SystemPrompt(catalogue *Catalogue) string {
	var b strings.Builder
	b.WriteString("Você é um especialista em categorização de gastos financeiros brasileiros.\n\n")
	b.WriteString("Categorias disponíveis:\n")
	for _, cat := range catalogue.Categories() {
		fmt.Fprintf(&b, "- %s: %s\n", cat.Name, cat.Description)
	}
	b.WriteString("\n")
	b.WriteString(obviousEstablishments)
	b.WriteString("\n\n")
	b.WriteString(replyInstructions)
	return b.String()
}

// TransactionPrompt describes the transaction to classify.
func TransactionPrompt(tx models.Transaction, catalogue *Catalogue) string {
	var b strings.Builder
	b.WriteString("Analise esta transação e classifique na categoria mais apropriada:\n\n")
	fmt.Fprintf(&b, "Descrição: %s\n", tx.Description)
	fmt.Fprintf(&b, "Estabelecimento: %s\n", tx.Establishment)
	fmt.Fprintf(&b, "Valor: %s\n", currencyutils.FormatAmount(tx.Amount, "BRL"))
	fmt.Fprintf(&b, "Data: %s\n\n", dateutils.ToBrazilianFormat(tx.Date))

	b.WriteString("Exemplos de classificações similares:\n")
	for _, group := range catalogue.Examples() {
		fmt.Fprintf(&b, "**%s:**\n", group.Category)
		for i, ex := range group.Examples {
			if i == examplesPerCategory {
				break
			}
			fmt.Fprintf(&b, "- %s\n", ex)
		}
	}

	if training := catalogue.Training(); len(training) > 0 {
		b.WriteString("\nTransações já classificadas pelo usuário:\n")
		for i, ex := range training {
			if i == maxTrainingInPrompt {
				break
			}
			fmt.Fprintf(&b, "- %s (%s) = %s\n", ex.Description, ex.Establishment, ex.Category)
		}
	}

	b.WriteString("\nClassifique esta transação:")
	return b.String()
}

// BuildPrompt returns the full prompt sent to the external classifier.
func BuildPrompt(tx models.Transaction, catalogue *Catalogue) string {
	return SystemPrompt(catalogue) + "\n\n" + TransactionPrompt(tx, catalogue)
}
