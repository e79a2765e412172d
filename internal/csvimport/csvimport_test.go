package csvimport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/db"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

func TestParseDutchSemicolon(t *testing.T) {
	text := "\ufeffBedrijfsnaam;Contactpersoon;E-mail;Telefoon;Plaats;Branche\r\n" +
		"Bakker Jansen;Piet;Info@BakkerJansen.nl;030-1234567;Utrecht;horeca\r\n" +
		";Anna;anna@x.nl;;Utrecht;\r\n" +
		"\"Bouw & Co; BV\";;;;Amersfoort;aannemer\r\n"

	res, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalRows)
	require.Len(t, res.Leads, 2)
	assert.Equal(t, 1, res.SkippedCount)
	assert.Len(t, res.Errors, 1)

	first := res.Leads[0]
	assert.Equal(t, "Bakker Jansen", first.CompanyName)
	assert.Equal(t, "Piet", first.ContactPerson)
	assert.Equal(t, "info@bakkerjansen.nl", first.Email)
	assert.Equal(t, "horeca", first.Industry)
	assert.Equal(t, models.StatusNew, first.Status)

	assert.Equal(t, "Bouw & Co; BV", res.Leads[1].CompanyName)
	assert.Equal(t, "bouw", res.Leads[1].Industry)

	assert.Equal(t, "companyName", res.MappedColumns["Bedrijfsnaam"])
	assert.Equal(t, "email", res.MappedColumns["E-mail"])
}

func TestParseNameFallback(t *testing.T) {
	res, err := Parse("name,email,city\nAcme,hi@acme.nl,Delft\n")
	require.NoError(t, err)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, "Acme", res.Leads[0].CompanyName)

	res, err = Parse("company\tnaam\tstatus\nAcme\tJan\tcontacted\n")
	require.NoError(t, err)
	require.Len(t, res.Leads, 1)
	assert.Equal(t, "Acme", res.Leads[0].CompanyName)
	assert.Equal(t, "Jan", res.Leads[0].ContactPerson)
	assert.Equal(t, models.StatusContacted, res.Leads[0].Status)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("   \n")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Parse("foo,bar\n1,2\n")
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter("a,b,c"))
	assert.Equal(t, ';', sniffDelimiter("a;b;c"))
	assert.Equal(t, '\t', sniffDelimiter("a\tb\tc"))
	assert.Equal(t, ';', sniffDelimiter(`"a,b";c;d`))
	assert.Equal(t, ',', sniffDelimiter("single"))
}

func TestImportCountsAddUp(t *testing.T) {
	ctx := context.Background()
	store := db.NewStore(db.NewMemoryKV())
	_, err := store.CreateLead(ctx, models.Lead{CompanyName: "Bakker Jansen"})
	require.NoError(t, err)

	text := "bedrijf,plaats\n" +
		"bakker jansen,Utrecht\n" +
		"Schilder de Vries,Zeist\n" +
		"Schilder de Vries,Zeist\n" +
		",Houten\n" +
		"Kapsalon Mooi,Utrecht\n"

	res, err := Import(ctx, store, text)
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalRows)
	assert.Equal(t, 2, res.ImportedCount)
	assert.Equal(t, 3, res.SkippedCount)
	assert.Equal(t, res.TotalRows, res.ImportedCount+res.SkippedCount)
	for _, l := range res.Leads {
		assert.NotEmpty(t, l.CompanyName)
		assert.NotEmpty(t, l.ID)
	}

	all, err := store.ListLeads(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
