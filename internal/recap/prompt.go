package recap

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the fact sheet into the generation prompt. The same
// facts always produce the same prompt.
func BuildPrompt(f FactSheet) string {
	var sb strings.Builder

	sb.WriteString("You write short giving recaps for Good Measure, a personal giving planner.\n")
	fmt.Fprintf(&sb, "Write a first-person recap of my %d giving using ONLY the facts below.\n\n", f.Year)
	sb.WriteString("Rules:\n")
	sb.WriteString("- Warm, plain language; no preaching and no guilt.\n")
	sb.WriteString("- Three or four sentences, at most 120 words.\n")
	sb.WriteString("- Use only the numbers given; never invent or recompute amounts.\n")
	sb.WriteString("- Mention zakat and sadaqah only when nonzero.\n")
	sb.WriteString("- Plain text only, no headings or lists.\n\n")

	sb.WriteString("Facts:\n")
	if f.DisplayName != "" {
		fmt.Fprintf(&sb, "- Donor: %s\n", f.DisplayName)
	}
	fmt.Fprintf(&sb, "- Year: %d\n", f.Year)
	fmt.Fprintf(&sb, "- Total given: %s across %d donations\n", amount(f.TotalCents, f.Currency), f.DonationCount)
	if f.ZakatCents > 0 {
		fmt.Fprintf(&sb, "- Zakat: %s\n", amount(f.ZakatCents, f.Currency))
	}
	if f.SadaqahCents > 0 {
		fmt.Fprintf(&sb, "- Sadaqah: %s\n", amount(f.SadaqahCents, f.Currency))
	}
	if f.OtherCents > 0 {
		fmt.Fprintf(&sb, "- Other giving: %s\n", amount(f.OtherCents, f.Currency))
	}

	if f.PlanTargetCents > 0 {
		fmt.Fprintf(&sb, "- Plan target: %s, remaining: %s\n",
			amount(f.PlanTargetCents, f.Currency), amount(f.RemainingCents, f.Currency))
		for _, b := range f.Buckets {
			fmt.Fprintf(&sb, "- Bucket %q: gave %s of %s\n",
				b.Name, amount(b.DonatedCents, f.Currency), amount(b.TargetCents, f.Currency))
		}
	}

	if len(f.TopCauses) > 0 {
		parts := make([]string, 0, len(f.TopCauses))
		for _, c := range f.TopCauses {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Cause, amount(c.Cents, f.Currency)))
		}
		fmt.Fprintf(&sb, "- Top causes: %s\n", strings.Join(parts, ", "))
	}
	if len(f.TopCharities) > 0 {
		parts := make([]string, 0, len(f.TopCharities))
		for _, c := range f.TopCharities {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, amount(c.Cents, f.Currency)))
		}
		fmt.Fprintf(&sb, "- Top charities: %s\n", strings.Join(parts, ", "))
	}
	if f.DonationCount == 0 {
		sb.WriteString("- No donations recorded this year\n")
	}

	return sb.String()
}

// amount renders integer cents as a decimal amount with its currency code.
func amount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
