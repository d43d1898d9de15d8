package expense

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// newBillUpload builds a multipart body with a single "file" part
func newBillUpload(filename string, content []byte) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(content)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).NotTo(HaveOccurred())
	return body, writer.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		store       *Store
		extractor   *mockExtractor
		controller  *Controller
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(controller, store, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		// Each request consumes one appended handler; queue enough for the
		// busiest spec.
		for i := 0; i < 16; i++ {
			ghttpServer.AppendHandlers(server.ServeHTTP)
		}
	}

	uploadBill := func(filename string) *http.Response {
		body, contentType := newBillUpload(filename, []byte("fake image bytes"))
		resp, err := http.Post(ghttpServer.URL()+"/api/bill", contentType, body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		store = NewStore(DefaultCategories)
		extractor = newMockExtractor()
		controller = NewController(store, extractor)
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleIndex", func() {
		It("should return status OK", func() {
			resp, err := http.Get(ghttpServer.URL() + "/")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("should return HTML containing Pixel Budget", func() {
			resp, err := http.Get(ghttpServer.URL() + "/")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("Pixel Budget"))
		})
	})

	Describe("handleListExpenses", func() {
		When("no expenses exist", func() {
			It("should return an empty JSON array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})

		When("expenses exist", func() {
			BeforeEach(func() {
				store.Append(Draft{Vendor: "First", Amount: 1, Date: "2024-03-01", Category: "Groceries"})
				store.Append(Draft{Vendor: "Second", Amount: 2, Date: "2024-03-02", Category: "Utilities"})
			})

			It("should return all expenses newest first", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				var expenses []*Expense
				Expect(json.NewDecoder(resp.Body).Decode(&expenses)).To(Succeed())
				Expect(expenses).To(HaveLen(2))
				Expect(expenses[0].Vendor).To(Equal("Second"))
			})

			It("should set Content-Type to application/json", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
			})
		})
	})

	Describe("handleListCategories", func() {
		It("should return the seeded categories", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/categories")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var categories []string
			Expect(json.NewDecoder(resp.Body).Decode(&categories)).To(Succeed())
			Expect(categories).To(Equal(DefaultCategories))
		})
	})

	Describe("handleAddCategory", func() {
		It("should register a new category", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/categories", "application/json",
				strings.NewReader(`{"label": "Subscriptions"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var result struct {
				Added      bool     `json:"added"`
				Categories []string `json:"categories"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
			Expect(result.Added).To(BeTrue())
			Expect(result.Categories).To(ContainElement("Subscriptions"))
		})

		It("should report a case-insensitive duplicate as not added", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/categories", "application/json",
				strings.NewReader(`{"label": "groceries"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var result struct {
				Added      bool     `json:"added"`
				Categories []string `json:"categories"`
			}
			Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
			Expect(result.Added).To(BeFalse())
			Expect(result.Categories).To(HaveLen(len(DefaultCategories)))
		})

		It("should reject an invalid body", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/categories", "application/json",
				strings.NewReader(`not json`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleSelectBill", func() {
		It("should stage the uploaded file", func() {
			resp := uploadBill("bill.jpg")
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var snap Snapshot
			Expect(json.NewDecoder(resp.Body).Decode(&snap)).To(Succeed())
			Expect(snap.SelectedFile).To(Equal("bill.jpg"))
			Expect(snap.State).To(Equal(StateIdle))
		})

		It("should reject a request without a file part", func() {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			Expect(writer.Close()).NotTo(HaveOccurred())

			resp, err := http.Post(ghttpServer.URL()+"/api/bill", writer.FormDataContentType(), body)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleScan", func() {
		When("a file has been selected", func() {
			BeforeEach(func() {
				uploadBill("bill.jpg").Body.Close()
			})

			It("should return the created expense", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var e Expense
				Expect(json.NewDecoder(resp.Body).Decode(&e)).To(Succeed())
				Expect(e.ID).NotTo(BeEmpty())
				Expect(e.Vendor).To(Equal("Acme Mart"))
			})

			It("should append the expense to the list", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(store.Expenses()).To(HaveLen(1))
			})
		})

		When("no file has been selected", func() {
			It("should return a bad request with an error message", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var result map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result["error"]).NotTo(BeEmpty())
			})
		})

		When("extraction fails", func() {
			BeforeEach(func() {
				extractor.extractErr = errors.New("timeout")
				uploadBill("bill.jpg").Body.Close()
			})

			It("should surface the cause and keep the file", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/scan", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var result map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
				Expect(result["error"]).To(ContainSubstring("timeout"))
				Expect(controller.Snapshot().SelectedFile).To(Equal("bill.jpg"))
				Expect(store.Expenses()).To(BeEmpty())
			})
		})
	})

	Describe("handleSession", func() {
		It("should report the idle state initially", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/session")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var snap Snapshot
			Expect(json.NewDecoder(resp.Body).Decode(&snap)).To(Succeed())
			Expect(snap.State).To(Equal(StateIdle))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			setupServer()
		})

		It("should reject unauthenticated requests", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/expenses")
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/expenses", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("user", "pass")

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should reject wrong credentials", func() {
			req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/expenses", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("user", "wrong")

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})
