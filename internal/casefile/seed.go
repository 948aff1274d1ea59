package casefile

// SampleCases are the demo fraud alerts loaded by `voxdesk cases seed`.
func SampleCases() []Case {
	return []Case{
		{
			UserName:            "Amit Patel",
			SecurityIdentifier:  "12345",
			SecurityQuestion:    "What city were you born in?",
			SecurityAnswer:      "Delhi",
			CardEnding:          "4242",
			TransactionAmount:   "₹1,04,562",
			TransactionName:     "TechBazar Online",
			TransactionTime:     "November 26, 2025 at 11:45 PM",
			TransactionCategory: "e-commerce",
			TransactionSource:   "techbazar.in",
			TransactionLocation: "Bengaluru, Karnataka",
		},
		{
			UserName:            "Priya Sharma",
			SecurityIdentifier:  "67890",
			SecurityQuestion:    "What city were you born in?",
			SecurityAnswer:      "Mumbai",
			CardEnding:          "8888",
			TransactionAmount:   "₹3,02,100",
			TransactionName:     "Luxury Jewels India",
			TransactionTime:     "November 27, 2025 at 2:30 AM",
			TransactionCategory: "jewelry",
			TransactionSource:   "luxuryjewels.co.in",
			TransactionLocation: "Delhi, NCR",
		},
		{
			UserName:            "Rahul Verma",
			SecurityIdentifier:  "24680",
			SecurityQuestion:    "What is your favorite color?",
			SecurityAnswer:      "Blue",
			CardEnding:          "1234",
			TransactionAmount:   "₹7,560",
			TransactionName:     "GameZone India",
			TransactionTime:     "November 26, 2025 at 9:15 PM",
			TransactionCategory: "gaming",
			TransactionSource:   "gamezone.in",
			TransactionLocation: "Pune, Maharashtra",
		},
		{
			UserName:            "Neha Singh",
			SecurityIdentifier:  "13579",
			SecurityQuestion:    "What was your first pet's name?",
			SecurityAnswer:      "Sheru",
			CardEnding:          "5678",
			TransactionAmount:   "₹1,80,500",
			TransactionName:     "ElectroMart",
			TransactionTime:     "November 27, 2025 at 4:20 AM",
			TransactionCategory: "electronics",
			TransactionSource:   "electromart.com",
			TransactionLocation: "Hyderabad, Telangana",
		},
		{
			UserName:            "Rajesh Kumar",
			SecurityIdentifier:  "97531",
			SecurityQuestion:    "What is your favorite food?",
			SecurityAnswer:      "Biryani",
			CardEnding:          "9999",
			TransactionAmount:   "₹47,680",
			TransactionName:     "Fashion Hub India",
			TransactionTime:     "November 26, 2025 at 7:45 PM",
			TransactionCategory: "clothing",
			TransactionSource:   "fashionhub.in",
			TransactionLocation: "Chennai, Tamil Nadu",
		},
	}
}

// Seed inserts the given cases, skipping ones whose security identifier is
// already present.
func (s *Store) Seed(cases []Case) (int, error) {
	inserted := 0
	for _, c := range cases {
		if _, err := s.GetByIdentifier(c.SecurityIdentifier); err == nil {
			continue
		} else if err != ErrNotFound {
			return inserted, err
		}
		if err := s.Insert(c); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}
