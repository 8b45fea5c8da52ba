package cfg

type MockLoader struct{}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{}, nil
}

func (yl *MockLoader) Load() (*Config, error) {
	return &Config{
		// App
		App: App{
			Name:    "star-crawler",
			Version: "0.0.1",
		},

		// Mysql
		Mysql: Mysql{
			Host:                  "127.0.0.1",
			Password:              "root",
			Username:              "root",
			Port:                  "3306",
			Database:              "star_crawler",
			MaxIdleConnection:     10,
			MaxOpenConnection:     100,
			MaxLifeTimeConnection: 3600,
		},

		// GithubApi
		GithubApi: GithubApi{
			AccessToken:       "",
			GraphqlUrl:        "https://api.github.com/graphql",
			RequestsPerSecond: 5,
			RateLimitResetMin: 60,
		},

		// Crawler
		Crawler: Crawler{
			Language:           "go",
			MinStars:           10,
			Keywords:           nil,
			SortBy:             "",
			BatchSize:          100,
			MaxRetries:         3,
			TargetTotal:        5000,
			NumWorkers:         2,
			QueryResultCap:     1000,
			PartitionsPerCycle: 12,
			StartYear:          2008,
			StartMonth:         1,
			Sink:               "db",
		},

		// Kafka
		Kafka: Kafka{
			Brokers:   []string{"127.0.0.1:9092"},
			TopicRepo: "crawler.repos",
		},

		// Status
		Status: Status{
			Enabled: false,
			Addr:    ":2112",
		},
	}, nil
}
