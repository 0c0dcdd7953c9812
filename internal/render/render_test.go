package render

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petmvp/passportview/internal/backend"
	"github.com/petmvp/passportview/internal/booklet"
	"github.com/petmvp/passportview/internal/i18n"
	"github.com/petmvp/passportview/internal/passport"
	"github.com/petmvp/passportview/pkg/errors"
)

// fakeBackend serves the passport fixture and counts doctor lookups
type fakeBackend struct {
	data        []byte
	passportErr error
	countries   map[string]backend.Countries
	countryErr  map[string]error
	doctors     map[string]*backend.Doctor
	doctorErr   map[string]error
	delay       time.Duration

	mu            sync.Mutex
	doctorCalls   map[string]int
	countryCalls  []string
	inflight, max int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	data, err := os.ReadFile("../passport/testdata/passport.json")
	require.NoError(t, err)
	return &fakeBackend{
		data: data,
		countries: map[string]backend.Countries{
			"bg": {{Value: "BG", Label: "България"}, {Value: "DE", Label: "Германия"}},
			"en": {{Value: "BG", Label: "Bulgaria"}, {Value: "DE", Label: "Germany"}},
		},
		countryErr: map[string]error{},
		doctors: map[string]*backend.Doctor{
			"7": {ID: "7", FirstName: "Georgi", LastName: "Dimitrov", Address: "3 Shipka St", Email: "g@example.org",
				Translation: passport.Translation{"address": "Адрес", "email": "Имейл"}},
			"8": {ID: "8", FirstName: "Elena", LastName: "Koleva", Address: "9 Oborishte St", Email: "e@example.org"},
		},
		doctorErr:   map[string]error{},
		doctorCalls: map[string]int{},
	}
}

// mutate edits the fixture JSON before it is served
func (f *fakeBackend) mutate(t *testing.T, fn func(doc map[string]any)) {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(f.data, &doc))
	fn(doc)
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	f.data = data
}

func (f *fakeBackend) GetPassport(_ context.Context, _, number string) (*passport.Record, error) {
	if f.passportErr != nil {
		return nil, f.passportErr
	}
	return passport.Decode(f.data)
}

func (f *fakeBackend) GetDoctor(_ context.Context, _, id string) (*backend.Doctor, error) {
	n := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		cur := atomic.LoadInt32(&f.max)
		if n <= cur || atomic.CompareAndSwapInt32(&f.max, cur, n) {
			break
		}
	}
	f.mu.Lock()
	f.doctorCalls[id]++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.doctorErr[id]; err != nil {
		return nil, err
	}
	d, ok := f.doctors[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeBackendNotFound, "doctor not found")
	}
	return d, nil
}

func (f *fakeBackend) GetCountryChoices(_ context.Context, lang string) (backend.Countries, error) {
	f.mu.Lock()
	f.countryCalls = append(f.countryCalls, lang)
	f.mu.Unlock()
	if err := f.countryErr[lang]; err != nil {
		return nil, err
	}
	return f.countries[lang], nil
}

func newTestController(t *testing.T, fb *fakeBackend) *Controller {
	t.Helper()
	skeleton, err := booklet.New("")
	require.NoError(t, err)
	return NewController(fb, skeleton, i18n.MustNew(), Options{
		DefaultLanguage:       "bg",
		InternationalLanguage: "en",
		MaxLookups:            4,
	})
}

func render(t *testing.T, fb *fakeBackend, opts ViewOptions) *Result {
	t.Helper()
	res, err := newTestController(t, fb).View(context.Background(), "BG01AB123456", opts)
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *Result, sel string) string {
	t.Helper()
	n := res.Document.Query(sel)
	require.NotNil(t, n, sel)
	return domText(n)
}

func TestView_FullBooklet(t *testing.T) {
	res := render(t, newFakeBackend(t), ViewOptions{})

	assert.Empty(t, res.Failed)
	assert.Equal(t, StatusOK, res.Status())
	assert.Equal(t, "bg", res.Language)
	assert.Equal(t, "cover", res.Section)
	assert.NotEmpty(t, res.RenderID)

	t.Run("cover", func(t *testing.T) {
		assert.Equal(t, "Европейски съюз\nБългария", text(t, res, "#national-country-cover"))
		assert.Equal(t, "European Union \nBulgaria", text(t, res, "#inter-country-cover"))
	})

	t.Run("headers", func(t *testing.T) {
		assert.Equal(t, "1. ДАННИ ЗА СОБСТВЕНИКА", text(t, res, ".header.owner.page h6#national"))
		assert.Equal(t, "DETAILS OF OWNERSHIP", text(t, res, ".header.owner.page h6#inter"))
		assert.Equal(t, "Бележки", text(t, res, ".header.notes.page h6#national"))
		assert.Equal(t, "Notes", text(t, res, ".header.notes.page h6#inter"))
	})

	t.Run("notes", func(t *testing.T) {
		items := res.Document.QueryAll(".main.notes.page pre > ul > li")
		require.Len(t, items, 6)
		assert.Equal(t, "Първа бележка", domText(items[0]))
		assert.Equal(t, "First note", domText(items[1]))
		assert.Equal(t, "Third note", domText(items[5]))
		assert.Len(t, res.Document.QueryAll(".main.notes.page pre > ul > br"), 3)
	})

	t.Run("owner", func(t *testing.T) {
		labels := res.Document.QueryAll(".main.owner.page .owner-label")
		values := res.Document.QueryAll(".main.owner.page .owner-value")
		require.Len(t, labels, 7)
		require.Len(t, values, 7)
		assert.Equal(t, "Име / First Name: ", domText(labels[0]))
		assert.Equal(t, "Maria", domText(values[0]))
		assert.Equal(t, "Държава / Country: ", domText(labels[5]))
		assert.Equal(t, "България", domText(values[5]))
	})

	t.Run("pet photo placeholder", func(t *testing.T) {
		titles := res.Document.QueryAll(".main.pet.page div.pet-photo h6")
		require.Len(t, titles, 2)
		assert.Equal(t, "СНИМКА НА ЖИВОТНОТО (по избор)", domText(titles[0]))
		assert.Equal(t, "PICTURE OF THE ANIMAL (optional)", domText(titles[1]))
		assert.Len(t, res.Document.QueryAll(".main.pet.page .pet-info-group"), 7)
	})

	t.Run("issuing", func(t *testing.T) {
		groups := res.Document.QueryAll(".main.issuing.page .issuing-info-group")
		require.Len(t, groups, 8)
		assert.Equal(t,
			"Име на упълномощения ветеринарен лекар / Name of authorized veterinarian: Dr. Ivan Petrov",
			domText(groups[0]))
		assert.Equal(t, "Дата на издаване / Date Of Issue: 2021-05-01", domText(groups[7]))
	})

	t.Run("rabies vaccination table", func(t *testing.T) {
		rows := res.Document.QueryAll(".main.rabies-vaccination.page tbody > tr")
		require.Len(t, rows, 2)
		cells := res.Document.QueryAll(".main.rabies-vaccination.page tbody > tr:first-child > td")
		require.Len(t, cells, 4)
		assert.Equal(t, "Nobivac Rabies", domText(cells[0]))
		assert.Equal(t, "A123", domText(cells[1]))
		spans := res.Document.QueryAll(".main.rabies-vaccination.page tbody > tr:first-child div.multi-row-header > div > span")
		require.Len(t, spans, 3)
		assert.Equal(t, "2022-01-10", domText(spans[0]))
		assert.Equal(t, "2022-01-31", domText(spans[2]))
		assert.Equal(t, "Dr. Georgi Dimitrov", domText(cells[3]))
		assert.Equal(t, "Dr. Elena Koleva", text(t, res, ".main.rabies-vaccination.page tbody > tr:last-child > td:last-child"))
	})

	t.Run("antibody test record", func(t *testing.T) {
		groups := res.Document.QueryAll(".main.rabies-antibody-test.page .rabies-antibody-test-info-group")
		require.Len(t, groups, 6)
		assert.Equal(t, "Декларирам, че резултатът е валиден.", domText(groups[0]))
		assert.Nil(t, res.Document.Query(".main.rabies-antibody-test.page .rabies-antibody-test-info-group:first-child .rabies-antibody-test-label"))
		assert.Contains(t, domText(groups[3]), "Dr. Georgi Dimitrov")
		assert.Equal(t, "Адрес / Address: 3 Shipka St", domText(groups[4]))
	})

	t.Run("empty tables", func(t *testing.T) {
		assert.Empty(t, res.Document.QueryAll(".main.legalisation.page tbody > tr"))
		assert.Empty(t, res.Document.QueryAll(".main.other-parasites-treatment.page tbody > tr"))
	})

	t.Run("footers", func(t *testing.T) {
		footers := res.Document.QueryAll("section.page-footer")
		assert.Len(t, footers, len(passport.Booklet()))
		assert.Equal(t, "BG 01AB 123456", text(t, res, ".cover.page > section.page-footer > h5#passport-number"))
	})
}

func TestView_Visibility(t *testing.T) {
	res := render(t, newFakeBackend(t), ViewOptions{Section: "pet"})

	hidden := func(sel string) bool {
		n := res.Document.Query(sel)
		require.NotNil(t, n, sel)
		return hasClass(n, "hidden")
	}
	assert.False(t, hidden(".passport-container"))
	assert.True(t, hidden(".access-container"))
	assert.False(t, hidden(".pet-section"))
	assert.True(t, hidden(".cover-section"))
	assert.True(t, hidden(".notes-section"))

	highlighted := res.Document.QueryAll("ul.passport-contents > li.highlight")
	require.Len(t, highlighted, 1)
	assert.NotNil(t, res.Document.Query("ul.passport-contents > li.highlight > a#pet"))
}

func TestView_DoctorLookupsAreShared(t *testing.T) {
	fb := newFakeBackend(t)
	render(t, fb, ViewOptions{})

	assert.Equal(t, map[string]int{"7": 1, "8": 1}, fb.doctorCalls)
}

func TestView_DoctorFailureDropsOnlyTheCell(t *testing.T) {
	fb := newFakeBackend(t)
	fb.doctorErr["8"] = stderrors.New("backend down")
	res := render(t, fb, ViewOptions{})

	assert.Empty(t, res.Failed)
	rows := res.Document.QueryAll(".main.rabies-vaccination.page tbody > tr")
	require.Len(t, rows, 2)
	assert.Len(t, res.Document.QueryAll(".main.rabies-vaccination.page tbody > tr:first-child > td"), 4)
	assert.Len(t, res.Document.QueryAll(".main.rabies-vaccination.page tbody > tr:last-child > td"), 3)
	assert.Len(t, res.Document.QueryAll(".main.other-vaccination.page tbody > tr > td"), 3)
}

func TestView_SectionFailureIsLocal(t *testing.T) {
	fb := newFakeBackend(t)
	fb.mutate(t, func(doc map[string]any) {
		delete(doc["marking_section"].(map[string]any), "marking")
		doc["rabies_vaccination_section"].(map[string]any)["rabies_vaccines"] = "not a list"
	})
	res := render(t, fb, ViewOptions{})

	require.Len(t, res.Failed, 2)
	assert.Equal(t, "marking", res.Failed[0].Section)
	assert.Equal(t, "rabies-vaccination", res.Failed[1].Section)
	assert.True(t, errors.HasCode(res.Failed[1].Err, errors.ErrCodeSectionRender))
	assert.Equal(t, StatusPartial, res.Status())

	// failed pages keep the skeleton content and get no footer
	assert.Empty(t, text(t, res, ".header.marking.page h6#national"))
	assert.Nil(t, res.Document.Query(".marking.page > section.page-footer"))
	assert.NotNil(t, res.Document.Query(".main.rabies-vaccination.page tbody"))

	// later pages still render
	assert.Equal(t, "4. ИЗДАВАНЕ НА ПАСПОРТА", text(t, res, ".header.issuing.page h6#national"))
	assert.Len(t, res.Document.QueryAll(".main.other.page tbody > tr"), 1)
}

func TestView_SectionLevelLabels(t *testing.T) {
	fb := newFakeBackend(t)
	fb.mutate(t, func(doc map[string]any) {
		sec := doc["marking_section"].(map[string]any)
		sec["translation"] = map[string]any{"section_title": "Маркиране на животното", "code": "Код", "location": "Място"}
		marking := sec["marking"].(map[string]any)
		marking["translation"] = map[string]any{"location": "Местоположение"}
	})
	res := render(t, fb, ViewOptions{})
	require.Empty(t, res.Failed)

	labels := res.Document.QueryAll(".main.marking.page .marking-label")
	require.Len(t, labels, 3)
	assert.Equal(t, "Код / Code: ", domText(labels[0]), "section label fills the gap")
	assert.Equal(t, "Date Of Application / Date Of Application: ", domText(labels[1]))
	assert.Equal(t, "Местоположение / Location: ", domText(labels[2]), "entry label wins")
}

func TestView_MissingOwnersFailsCover(t *testing.T) {
	fb := newFakeBackend(t)
	fb.mutate(t, func(doc map[string]any) {
		doc["owners_section"].(map[string]any)["owners"] = []any{}
	})
	res := render(t, fb, ViewOptions{})

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "cover", res.Failed[0].Section)
	assert.Empty(t, res.Document.QueryAll(".main.owner.page .owner-info-group"))
}

func TestView_Errors(t *testing.T) {
	tests := []struct {
		name   string
		number string
		opts   ViewOptions
		setup  func(fb *fakeBackend)
		code   errors.ErrorCode
	}{
		{name: "invalid number", number: "12345", code: errors.ErrCodeValidation},
		{name: "unknown section", number: "BG01AB123456", opts: ViewOptions{Section: "vaccines"}, code: errors.ErrCodeValidation},
		{
			name:   "passport not found",
			number: "BG01AB123456",
			setup: func(fb *fakeBackend) {
				fb.passportErr = errors.New(errors.ErrCodeBackendNotFound, "Passport not found.")
			},
			code: errors.ErrCodeBackendNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			if tt.setup != nil {
				tt.setup(fb)
			}
			res, err := newTestController(t, fb).View(context.Background(), tt.number, tt.opts)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.HasCode(err, tt.code), err.Error())
		})
	}
}

func TestView_NormalizesPassportNumber(t *testing.T) {
	res, err := newTestController(t, newFakeBackend(t)).View(context.Background(), "bg 01ab-123456", ViewOptions{})
	require.NoError(t, err)
	assert.Equal(t, "BG01AB123456", res.Record.PassportNumber)
}

func TestView_CoverCountries(t *testing.T) {
	t.Run("international language reuses the national list", func(t *testing.T) {
		fb := newFakeBackend(t)
		res := render(t, fb, ViewOptions{Language: "en"})

		assert.Equal(t, "European Union\nBulgaria", text(t, res, "#national-country-cover"))
		assert.Equal(t, "European Union \nBulgaria", text(t, res, "#inter-country-cover"))
		assert.Equal(t, []string{"en"}, fb.countryCalls)
	})

	t.Run("international list unavailable", func(t *testing.T) {
		fb := newFakeBackend(t)
		fb.countryErr["en"] = stderrors.New("timeout")
		res := render(t, fb, ViewOptions{})

		assert.Empty(t, res.Failed)
		assert.Equal(t, "Европейски съюз\nБългария", text(t, res, "#national-country-cover"))
		assert.Equal(t, "European Union \nBG", text(t, res, "#inter-country-cover"))
	})

	t.Run("national list unavailable", func(t *testing.T) {
		fb := newFakeBackend(t)
		fb.countryErr["bg"] = stderrors.New("timeout")
		res := render(t, fb, ViewOptions{})

		assert.Equal(t, "Европейски съюз\nBG", text(t, res, "#national-country-cover"))
		assert.Equal(t, "European Union \nBulgaria", text(t, res, "#inter-country-cover"))
	})
}

func TestView_NotesPadding(t *testing.T) {
	fb := newFakeBackend(t)
	fb.mutate(t, func(doc map[string]any) {
		notes := doc["notes_section"].(map[string]any)
		notes["translation"].(map[string]any)["content"] = "Само една бележка"
	})
	res := render(t, fb, ViewOptions{})

	items := res.Document.QueryAll(".main.notes.page pre > ul > li")
	require.Len(t, items, 6)
	assert.Equal(t, "Само една бележка", domText(items[0]))
	assert.Equal(t, "", domText(items[2]))
	assert.Equal(t, "Second note", domText(items[3]))
}

func TestLookupDoctors_RespectsLimit(t *testing.T) {
	fb := newFakeBackend(t)
	fb.delay = 5 * time.Millisecond
	for i := 0; i < 6; i++ {
		id := fmt.Sprint(100 + i)
		fb.doctors[id] = &backend.Doctor{ID: id, FirstName: "Doc", LastName: id}
	}

	v := &View{
		backend:    fb,
		doctors:    newDoctorResolver(fb, "bg", nil),
		maxLookups: 2,
		log:        zap.NewNop(),
	}
	rows := []passport.Entry{
		{"doctor": float64(100)}, {"doctor": float64(101)}, {"doctor": float64(102)},
		{"doctor": map[string]any{"id": float64(103)}}, {"doctor": float64(104)}, {"doctor": float64(105)},
		{"doctor": nil}, {"doctor": float64(999)},
	}
	results := v.lookupDoctors(context.Background(), "test", rows)

	require.Len(t, results, len(rows))
	assert.LessOrEqual(t, atomic.LoadInt32(&fb.max), int32(2))
	for i := 0; i < 6; i++ {
		assert.Equal(t, RowResolved, results[i].State, "row %d", i)
		assert.Equal(t, fmt.Sprintf("Dr. Doc %d", 100+i), results[i].Doctor.Name())
	}
	assert.Equal(t, RowFailed, results[6].State)
	assert.ErrorIs(t, results[6].Err, errNoDoctor)
	assert.Equal(t, RowFailed, results[7].State)
	assert.True(t, errors.HasCode(results[7].Err, errors.ErrCodeBackendNotFound))
}

func TestDoctorResolver_MemoizesFailures(t *testing.T) {
	fb := newFakeBackend(t)
	fb.doctorErr["7"] = stderrors.New("boom")
	r := newDoctorResolver(fb, "bg", nil)

	for i := 0; i < 3; i++ {
		_, err := r.resolve(context.Background(), "7")
		assert.Error(t, err)
	}
	d, err := r.resolve(context.Background(), "8")
	require.NoError(t, err)
	assert.Equal(t, "Elena", d.FirstName)
	assert.Equal(t, map[string]int{"7": 1, "8": 1}, fb.doctorCalls)
}

func TestRowState_String(t *testing.T) {
	assert.Equal(t, "pending", RowPending.String())
	assert.Equal(t, "resolved", RowResolved.String())
	assert.Equal(t, "failed", RowFailed.String())
	assert.Equal(t, "unknown", RowState(9).String())
}
