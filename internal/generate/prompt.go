package generate

import (
	"fmt"
	"strings"

	"github.com/nborup/skribent/internal/models"
)

// Request describes one SEO text to generate.
type Request struct {
	Keywords       string
	Profile        models.Profile
	TextLength     int // target word count for the body
	IncludeMeta    bool
	ContentType    string
	TargetAudience string
	Purpose        string
}

const systemWriter = "Du er en ekspert SEO-tekstforfatter der skriver på dansk. " +
	"Du fokuserer altid på keyword-relevans og undgår generelle virksomhedsoplysninger " +
	"der ikke relaterer til det specifikke keyword."

const systemEditor = "Du er en ekspert tekstredaktør der laver præcise ændringer til tekst. " +
	"Du returnerer KUN den redigerede tekst uden forklaringer eller kommentarer."

// buildPrompt assembles the structured generation prompt. The model is
// instructed to emit the H1 on the first line, the meta description as a
// META: line, and the body afterwards, all in Markdown.
func buildPrompt(req Request) string {
	kw := strings.TrimSpace(req.Keywords)
	length := req.TextLength
	if length <= 0 {
		length = 500
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("PRIMÆRT FOKUS: Skriv SEO-optimeret indhold der er 100%% relevant for keywordet: %s", kw)
	line("VIGTIGT: Hele teksten skal handle om '%s' - undgå generelle oplysninger der ikke relaterer direkte til dette emne.", kw)

	line("\nDit output SKAL struktureres PRÆCIS sådan:")
	line("1. ALLERFØRSTE linje: KUN den foreslåede H1-titel, startende med '# '.")
	line("   - H1-titlen skal bruge sentence case og SKAL indeholde '%s' eller en tæt variant.", kw)
	if req.IncludeMeta {
		line("2. ANDEN linje: KUN den foreslåede meta beskrivelse (max 155 tegn), startende med 'META: '.")
		line("   - Meta beskrivelsen må ALDRIG gentages i brødteksten.")
	}
	line("Derefter: KUN selve brødteksten på cirka %d ord.", length)
	line("   - Brug H2 og H3 underoverskrifter der relaterer til '%s'.", kw)
	line("   - Afslut med en relevant call-to-action.")

	if products := productLines(req.Profile.Products); products != "" {
		line("\nHØJ PRIORITET - Integrer disse produkter naturligt med '%s':\n%s", kw, products)
	}

	line("\nIndstillinger:")
	if req.Profile.Tone != "" {
		line("- Tone: %s", req.Profile.Tone)
	}
	if req.Profile.Values != "" {
		line("- Virksomhedens værdier: %s", req.Profile.Values)
	}
	if req.Profile.Description != "" {
		line("- Om virksomheden: %s", req.Profile.Description)
	}
	if req.TargetAudience != "" {
		line("- Målgruppe: %s", req.TargetAudience)
	}
	if req.ContentType != "" {
		line("- Indholdstype: %s", req.ContentType)
	}
	if req.Purpose != "" {
		line("- Formål: %s", req.Purpose)
	}
	if req.Profile.InternalLinks != "" {
		line("- Interne links der kan flettes ind hvor de er relevante: %s", req.Profile.InternalLinks)
	}

	line("\nVIGTIGT: Brug markdown-format med overskrifter (# for H1, ## for H2, ### for H3) og fed tekst (**tekst**).")
	line("DANSKE OVERSKRIFTER: KUN stort begyndelsesbogstav i det første ord og i egennavne.")
	line("Korrekt dansk retskrivning og grammatik er essentielt.")

	if blocked := blockedWordsList(req.Profile.BlockedWords); blocked != "" {
		line("\nKRITISK VIGTIG: Du må ALDRIG bruge disse ord i teksten: %s", blocked)
		line("Find alternative formuleringer for disse ord.")
	}

	return b.String()
}

// variationPrompt asks for a short standalone text, numbered so repeated
// calls diverge.
func variationPrompt(keywords string, n int) string {
	return fmt.Sprintf(`Skriv en kort SEO-optimeret tekst (ca. 150-200 ord) baseret på keywords: %s

Variation #%d - Gør denne version unik med forskellig vinkel og tone.
Inkluder:
- Fængende overskrift
- Naturlig brug af keywords
- Call-to-action

Formater med markdown.`, keywords, n)
}

// editPrompts maps the canned revision instructions to their prompts. The
// fallback for free-form instructions is built in editPrompt.
var editPrompts = map[string]string{
	"forkort": `Forkort KUN det følgende tekstafsnit betydeligt, mens du bevarer de vigtigste pointer og budskabet:

%s

VIGTIGT:
- Returner KUN den forkortede version af afsnittet, intet andet
- Ingen forklaringer, ingen "Her er teksten:", ingen kommentarer
- Bevar den oprindelige tone og stil
- Bevar formatering hvis relevant (markdown overskrifter etc.)
- Dansk retskrivning og grammatik
- Reducer længden med mindst 30-50%%`,
	"forlæng": `Forlæng KUN det følgende tekstafsnit med flere detaljer, eksempler eller forklaringer:

%s

VIGTIGT:
- Returner KUN den forlængede version af afsnittet, intet andet
- Ingen forklaringer, ingen "Her er teksten:", ingen kommentarer
- Tilføj relevant indhold der uddyber emnet
- Bevar den oprindelige tone og stil
- Bevar formatering hvis relevant (markdown overskrifter etc.)
- Dansk retskrivning og grammatik
- Sigt efter at udvide teksten med 30-50%% mere indhold`,
	"gør mere sælgende": `Omskriv KUN det følgende tekstafsnit for at gøre det mere overbevisende og sælgende:

%s

VIGTIGT:
- Returner KUN den mere sælgende version af afsnittet, intet andet
- Ingen forklaringer, ingen "Her er teksten:", ingen kommentarer
- Tilføj overbevisende elementer, fordele og call-to-action
- Bevar den oprindelige tone men gør den mere engagerende
- Bevar formatering hvis relevant (markdown overskrifter etc.)
- Dansk retskrivning og grammatik`,
	"ny vinkel": `Omskriv KUN det følgende tekstafsnit med en ny og frisk vinkel eller tilgang:

%s

VIGTIGT:
- Returner KUN versionen med ny vinkel af afsnittet, intet andet
- Ingen forklaringer, ingen "Her er teksten:", ingen kommentarer
- Bevar samme information men præsenter den fra en ny vinkel
- Bevar den oprindelige tone og stil
- Bevar formatering hvis relevant (markdown overskrifter etc.)
- Dansk retskrivning og grammatik`,
	"mere simpel": `Omskriv KUN det følgende tekstafsnit for at gøre det mere simpelt og lettere at forstå:

%s

VIGTIGT:
- Returner KUN den simplificerede version af afsnittet, intet andet
- Ingen forklaringer, ingen "Her er teksten:", ingen kommentarer
- Brug simplere ord og kortere sætninger
- Gør komplekse koncepter mere tilgængelige
- Bevar formatering hvis relevant (markdown overskrifter etc.)
- Dansk retskrivning og grammatik`,
}

// editPrompt builds the revision prompt for a selection and instruction,
// appending the blocked-words clause when the profile has any.
func editPrompt(instruction, original string, blockedWords []string) string {
	var prompt string
	if tpl, ok := editPrompts[strings.ToLower(strings.TrimSpace(instruction))]; ok {
		prompt = fmt.Sprintf(tpl, original)
	} else {
		prompt = fmt.Sprintf(`Omskriv KUN det følgende tekstafsnit baseret på denne instruktion: "%s"

%s

VIGTIGT:
- Returner KUN den omskrevne version af afsnittet, intet andet
- Ingen forklaringer, ingen "Her er teksten:", ingen kommentarer
- Bevar formatering hvis relevant (markdown overskrifter etc.)
- Dansk retskrivning og grammatik`, instruction, original)
	}
	if blocked := blockedWordsList(blockedWords); blocked != "" {
		prompt += fmt.Sprintf("\n- KRITISK: Du må ALDRIG bruge disse ord: %s", blocked)
	}
	return prompt
}

// translatorSystem instructs literal HTML-preserving translation from
// Danish to the target language.
func translatorSystem(targetLanguage string) string {
	return fmt.Sprintf("Du er en professionel oversætter. Oversæt nøjagtigt og ordret fra dansk til %s. "+
		"Bevar alle HTML-tags og strukturen præcis som den er. Du må ikke forklare noget. "+
		"Returnér KUN den oversatte tekst.", targetLanguage)
}

func productLines(products []models.Product) string {
	var lines []string
	for _, p := range products {
		if strings.TrimSpace(p.Description) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", p.Name, p.Description))
	}
	return strings.Join(lines, "\n")
}

func blockedWordsList(words []string) string {
	var clean []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			clean = append(clean, w)
		}
	}
	return strings.Join(clean, ", ")
}
