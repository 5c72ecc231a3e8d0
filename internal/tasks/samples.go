package tasks

import (
	"math/rand/v2"
	"time"

	"github.com/desertthunder/mwx/internal/models"
)

// DefaultSubscribers returns the sample subscribers imported when no subscriber file is given.
func DefaultSubscribers(now time.Time) []models.Subscriber {
	daysAgo := func() time.Time {
		return now.AddDate(0, 0, -(20 + rand.IntN(20)))
	}

	return []models.Subscriber{
		{
			OptIn:      true,
			MailFormat: models.MailFormatMultipart,
			Language:   "EN",
			Status:     models.StatusActiveIfManualInactive,
			Fields: []models.Field{
				models.TextField("email", "service@mailworx.info"),
				models.TextField("firstname", "mailworx"),
				models.TextField("lastname", "ServiceCrew"),
				models.DateTimeField("birthdate", now),
				models.TextField("note", "JustPutYourTextRightHere"),
				models.SelectionField("interest", "interest_politics", "interest_economy"),
				models.SelectionField("position", "position_sales"),
			},
		},
		{
			OptIn:      false,
			MailFormat: models.MailFormatText,
			Status:     models.StatusInactive,
			Fields: []models.Field{
				models.TextField("firstname", "Max"),
				models.TextField("lastname", "Mustermann"),
				models.NumberField("customerid", 1000+rand.Int64N(1<<31-1001)),
				models.BooleanField("iscustomer", true),
				models.TextField("email", "max@mustermann.at"),
			},
		},
		{
			OptIn:      true,
			MailFormat: models.MailFormatHTML,
			Language:   "DE",
			Status:     models.StatusActive,
			Fields: []models.Field{
				models.TextField("lastname", "Musterfrau"),
				models.DateTimeField("birthdate", daysAgo()),
				models.SelectionField("position", "position_sales"),
				models.BooleanField("iscustomer", false),
				models.NumberField("customerid", 1),
				models.TextField("email", "musterfrau@test.at"),
			},
		},
		{
			OptIn:      true,
			MailFormat: models.MailFormatHTML,
			Language:   "EN",
			Status:     models.StatusActive,
			Fields: []models.Field{
				models.TextField("lastname", "Musterfrau"),
				models.DateTimeField("birthdate", daysAgo()),
				models.SelectionField("position", "position_sales", "position_mechanic"),
				models.BooleanField("iscustomer", true),
				{Kind: models.KindNumber, InternalName: "customerid"},
				models.TextField("email", "isolde@musterfrau.at"),
			},
		},
	}
}

// DefaultBlueprint returns the article, banner and two column sections of the sample newsletter.
//
// Asset paths are relative to the configured assets directory.
func DefaultBlueprint() Blueprint {
	return Blueprint{
		{
			Definition:    "article",
			StatisticName: "my first article",
			Fields: map[string]Filler{
				"a_show": Flag(true),
				"description": Text(`Lorem ipsum dolor sit amet, consetetur sadipscing elitr, sed diam nonumy &quot;eirmod tempor&quot; ` +
					`invidunt ut labore et dolore magna aliquyam erat, sed diam voluptua. At vero eos et accusam et ` +
					`<a href="www.mailworx.info">justo</a> duo dolores et ea rebum. Stet clita kasd gubergren, no sea takimata ` +
					`sanctus est Lorem ipsum dolor sit amet. At vero eos et accusam et justo duo dolores et ea rebum. ` +
					`<a href="http://sys.mailworx.info/sys/Form.aspx?frm=4bf54eb6-97a6-4f95-a803-5013f0c62b35">Stet</a> clita kasd ` +
					`gubergren, no sea takimata sanctus est Lorem ipsum dolor sit amet.`),
				"productimage": Asset{LocalPath: "image_2016061694924427.png", RemoteName: "criteria.png"},
				"name":         Token("[%mwr:briefanrede%]"),
			},
		},
		{
			Definition:    "banner",
			StatisticName: "banner",
			Fields: map[string]Filler{
				"al_image": Asset{LocalPath: "irated_header_final.jpg", RemoteName: "iratedHeader.jpg"},
				"al_text": Text(`Developed in the <a href="http://www.mailworx.info/en/">mailworx</a> laboratory the intelligent ` +
					`and auto-adaptive algorithm <a href="http://www.mailworx.info/en/irated-technology">iRated®</a> brings real ` +
					`progress to your email marketing. It is more than a target group oriented approach. iRated® sorts the ` +
					`sections of your emails automatically depending on the current preferences of every single subscriber.`),
			},
		},
		{
			Definition:    "section two columns",
			StatisticName: "section with two columns",
			Fields: map[string]Filler{
				"atwo_left_image": Asset{LocalPath: "connector.png", RemoteName: "connector.png"},
				"atwo_left_text": Text(`Ut wisi enim ad minim veniam, quis nostrud exerci tation ullamcorper suscipit lobortis ` +
					`nisl ut aliquip ex ea commodo consequat. Duis autem vel eum iriure dolor in hendrerit in vulputate velit ` +
					`esse molestie consequat.`),
				"atwo_right_image": Asset{LocalPath: "event-app-qr-code-ticket.png", RemoteName: "event.png"},
				"atwo_right_text": Text(`Nam liber tempor cum soluta nobis eleifend option congue nihil imperdiet doming id ` +
					`quod mazim placerat facer possim assum. Lorem ipsum dolor sit amet, consectetuer adipiscing elit, sed ` +
					`diam nonummy nibh euismod tincidunt ut laoreet dolore magna aliquam erat volutpat.`),
			},
		},
	}
}
